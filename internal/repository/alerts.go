package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// AlertsRepository 报警仓库
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建报警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlert 持久化一条报警并返回数据库生成的 id
func (r *AlertsRepository) CreateAlert(ctx context.Context, alert *models.Alert) (int64, error) {
	query := `
		INSERT INTO system_alerts (timestamp, alert_type, device_id, message, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		alert.Timestamp,
		alert.AlertType,
		alert.DeviceID,
		alert.Message,
		alert.Severity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create alert: %w", err)
	}

	return id, nil
}

// AcknowledgeAlert 确认一条报警
// 返回 sql.ErrNoRows 表示报警不存在
func (r *AlertsRepository) AcknowledgeAlert(ctx context.Context, alertID int64) error {
	query := `
		UPDATE system_alerts
		SET acknowledged = 1, acknowledged_at = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, alertID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetAlertStats 统计最近24小时按级别的报警数与未确认总数
func (r *AlertsRepository) GetAlertStats(ctx context.Context) (*models.AlertStats, error) {
	stats := &models.AlertStats{
		BySeverity24h: make(map[string]int),
	}

	since := time.Now().UTC().Add(-24 * time.Hour)

	rows, err := r.db.QueryContext(ctx, `
		SELECT severity, COUNT(*)
		FROM system_alerts
		WHERE timestamp >= $1
		GROUP BY severity
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan alert stats row: %w", err)
		}
		stats.BySeverity24h[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM system_alerts WHERE acknowledged = 0
	`).Scan(&stats.Unacknowledged)
	if err != nil {
		return nil, fmt.Errorf("failed to count unacknowledged alerts: %w", err)
	}

	return stats, nil
}
