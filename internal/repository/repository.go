// Package repository 实现基于 PostgreSQL 的记录存储
//
// 表结构沿用现场既有约定：bom_readings（环境读数）、ear_tag_data（耳标）、
// sprinkler_data（控制器事件）、system_alerts（报警）、device_registry
// （设备注册表）。每张业务表带 synced/synced_at 列供云同步使用。
package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// 云同步跟踪的表，固定顺序
const (
	TableReadings   = "bom_readings"
	TableEarTags    = "ear_tag_data"
	TableSprinklers = "sprinkler_data"
	TableAlerts     = "system_alerts"
)

// SyncTables 云同步按此顺序逐表处理
var SyncTables = []string{TableReadings, TableEarTags, TableSprinklers, TableAlerts}

// NewPostgresDB 创建数据库连接并验证连通性
func NewPostgresDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// InitSchema 初始化全部表与索引（幂等）
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bom_readings (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			sensor_type TEXT NOT NULL,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			co2 DOUBLE PRECISION,
			nh3 DOUBLE PRECISION,
			pm25 DOUBLE PRECISION,
			co DOUBLE PRECISION,
			camera_image TEXT,
			synced INTEGER DEFAULT 0,
			synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ear_tag_data (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			temperature DOUBLE PRECISION,
			accel_x DOUBLE PRECISION,
			accel_y DOUBLE PRECISION,
			accel_z DOUBLE PRECISION,
			heart_rate INTEGER,
			spo2 DOUBLE PRECISION,
			synced INTEGER DEFAULT 0,
			synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sprinkler_data (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			message_type TEXT NOT NULL,
			rfid_uid TEXT,
			action TEXT,
			moisture_level DOUBLE PRECISION,
			alert TEXT,
			synced INTEGER DEFAULT 0,
			synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS system_alerts (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			alert_type TEXT NOT NULL,
			device_id TEXT,
			message TEXT,
			severity TEXT,
			acknowledged INTEGER DEFAULT 0,
			acknowledged_at TIMESTAMPTZ,
			synced INTEGER DEFAULT 0,
			synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS device_registry (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT UNIQUE NOT NULL,
			device_type TEXT NOT NULL,
			last_seen TIMESTAMPTZ,
			status TEXT DEFAULT 'UNKNOWN',
			location TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bom_timestamp ON bom_readings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_ear_tag_device ON ear_tag_data(device_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_severity ON system_alerts(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_synced_bom ON bom_readings(synced)`,
		`CREATE INDEX IF NOT EXISTS idx_synced_ear_tag ON ear_tag_data(synced)`,
		`CREATE INDEX IF NOT EXISTS idx_synced_sprinkler ON sprinkler_data(synced)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}
