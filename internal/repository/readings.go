package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// ReadingsRepository 读数仓库：环境读数、耳标读数、控制器事件
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertEnvironmental 写入一条环境读数
// Fields 中的 nil 值按 SQL NULL 落库，表示该传感器本周期不可用
func (r *ReadingsRepository) InsertEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) (int64, error) {
	query := `
		INSERT INTO bom_readings
			(timestamp, sensor_type, temperature, humidity, co2, nh3, pm25, co, camera_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var camera sql.NullString
	if reading.Camera != "" {
		camera = sql.NullString{String: reading.Camera, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reading.Timestamp,
		"BOM_STATION",
		nullFloat(reading.Fields["temperature"]),
		nullFloat(reading.Fields["humidity"]),
		nullFloat(reading.Fields["co2"]),
		nullFloat(reading.Fields["nh3"]),
		nullFloat(reading.Fields["pm25"]),
		nullFloat(reading.Fields["co"]),
		camera,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert environmental reading: %w", err)
	}

	return id, nil
}

// InsertWearable 写入一条耳标读数，并刷新设备注册表
func (r *ReadingsRepository) InsertWearable(ctx context.Context, reading *models.WearableReading) (int64, error) {
	query := `
		INSERT INTO ear_tag_data
			(device_id, timestamp, temperature, accel_x, accel_y, accel_z, heart_rate, spo2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reading.DeviceID,
		reading.Timestamp,
		reading.Temperature,
		reading.AccelX,
		reading.AccelY,
		reading.AccelZ,
		reading.HeartRate,
		reading.SpO2,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert wearable reading: %w", err)
	}

	if err := r.upsertDevice(ctx, reading.DeviceID, "EAR_TAG", reading.Location); err != nil {
		// 注册表只是元数据，失败不影响读数落库
		r.logger.Warn("Failed to update device registry",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
	}

	return id, nil
}

// InsertController 写入一条控制器事件，并刷新设备注册表
func (r *ReadingsRepository) InsertController(ctx context.Context, event *models.ControllerEvent) (int64, error) {
	query := `
		INSERT INTO sprinkler_data
			(device_id, timestamp, message_type, rfid_uid, action, moisture_level, alert)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		event.DeviceID,
		event.Timestamp,
		event.MessageType,
		nullString(event.RFIDTag),
		nullString(event.Action),
		nullFloat(event.MoistureLevel),
		nullString(event.AlertText),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert controller event: %w", err)
	}

	if err := r.upsertDevice(ctx, event.DeviceID, "CONTROLLER", event.Location); err != nil {
		r.logger.Warn("Failed to update device registry",
			zap.String("device_id", event.DeviceID),
			zap.Error(err),
		)
	}

	return id, nil
}

// upsertDevice 刷新设备注册表的 last_seen 与在线状态
func (r *ReadingsRepository) upsertDevice(ctx context.Context, deviceID, deviceType, location string) error {
	query := `
		INSERT INTO device_registry (device_id, device_type, last_seen, status, location)
		VALUES ($1, $2, $3, 'ONLINE', $4)
		ON CONFLICT (device_id) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			status = 'ONLINE',
			location = EXCLUDED.location
	`

	if _, err := r.db.ExecContext(ctx, query, deviceID, deviceType, time.Now().UTC(), location); err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
