package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// SyncRepository 云同步队列仓库
// 表名只接受 SyncTables 白名单中的值
type SyncRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSyncRepository 创建云同步仓库
func NewSyncRepository(db *sql.DB, logger *zap.Logger) *SyncRepository {
	return &SyncRepository{
		db:     db,
		logger: logger,
	}
}

func validateTable(table string) error {
	for _, t := range SyncTables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("unknown sync table: %s", table)
}

// QueryUnsynced 取指定表最早的未同步记录（created_at 升序，最多 limit 条）
// 返回按列名展开的记录与对应主键，供批量标记使用
func (r *SyncRepository) QueryUnsynced(ctx context.Context, table string, limit int) ([]models.SyncRecord, []int64, error) {
	if err := validateTable(table); err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf(`
		SELECT * FROM %s
		WHERE synced = 0
		ORDER BY created_at ASC
		LIMIT $1
	`, table)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query unsynced rows from %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []models.SyncRecord
	var ids []int64

	for rows.Next() {
		values := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan unsynced row: %w", err)
		}

		record := make(models.SyncRecord, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)

		if id, ok := record["id"].(int64); ok {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate unsynced rows: %w", err)
	}

	return records, ids, nil
}

// MarkSynced 将整批记录标记为已同步
// 仅在云端确认成功后调用
func (r *SyncRepository) MarkSynced(ctx context.Context, table string, ids []int64) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET synced = 1, synced_at = $1
		WHERE id = ANY($2)
	`, table)

	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to mark synced in %s: %w", table, err)
	}

	return nil
}

// PendingSyncCounts 统计各表待同步记录数
func (r *SyncRepository) PendingSyncCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(SyncTables))

	for _, table := range SyncTables {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE synced = 0`, table)

		var count int
		if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count pending rows in %s: %w", table, err)
		}
		counts[table] = count
	}

	return counts, nil
}

// normalizeValue 将驱动返回值转成可 JSON 序列化的形态
// lib/pq 对文本列返回 []byte，时间列转成 RFC3339 字符串
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
