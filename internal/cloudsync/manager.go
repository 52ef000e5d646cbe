// Package cloudsync 将本地累积的记录批量补传到云端
//
// 每个同步周期按固定表顺序逐表处理：取最早的未同步记录（单批最多
// batchSize 条），整批推送，云端确认后才标记已同步。推送失败按 2^n 秒
// 退避重试，最多 maxRetries 次；HTTP 429 额外固定等待 60 秒。重试耗尽
// 则放弃本批，记录留在本地等下个周期。
package cloudsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
	"github.com/Praneyaarora/Murgamon-project/internal/repository"
)

const rateLimitExtraWait = 60 * time.Second

// SyncStore 本地待同步记录的读取与确认
type SyncStore interface {
	QueryUnsynced(ctx context.Context, table string, limit int) ([]models.SyncRecord, []int64, error)
	MarkSynced(ctx context.Context, table string, ids []int64) error
}

// Options 同步器配置
type Options struct {
	FarmID     string
	APIURL     string
	APIKey     string
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Manager 云同步管理器
type Manager struct {
	opts   Options
	store  SyncStore
	client *resty.Client
	logger *zap.Logger

	// 统计由同步任务写、统计上报任务读，需加锁
	statsMu sync.Mutex
	stats   models.SyncStats

	// sleepFn 退避等待，测试中替换以免真实睡眠
	sleepFn func(ctx context.Context, d time.Duration)
	nowFn   func() time.Time

	// OnBatchSynced 每批确认成功后回调（指标用），可为 nil
	OnBatchSynced func(table string, count int)
	// OnBatchFailed 每批放弃后回调（指标用），可为 nil
	OnBatchFailed func(table string)
}

// NewManager 创建云同步管理器
func NewManager(opts Options, store SyncStore, logger *zap.Logger) *Manager {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", opts.APIKey)

	return &Manager{
		opts:    opts,
		store:   store,
		client:  client,
		logger:  logger,
		sleepFn: sleepWithContext,
		nowFn:   time.Now,
	}
}

// Run 周期执行同步，阻塞直到 ctx 取消
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SyncCycle(ctx)
		}
	}
}

// SyncCycle 执行一个完整同步周期并更新统计
func (m *Manager) SyncCycle(ctx context.Context) {
	synced := 0
	failed := 0

	for _, table := range repository.SyncTables {
		n, err := m.syncTable(ctx, table)
		if err != nil {
			m.logger.Error("Table sync failed",
				zap.String("table", table),
				zap.Error(err),
			)
			failed++
			continue
		}
		synced += n
	}

	// 统计每个完整周期更新一次
	m.statsMu.Lock()
	m.stats.TotalSynced += synced
	m.stats.FailedSyncs += failed
	m.stats.LastSyncTime = m.nowFn().UTC().Format(time.RFC3339)
	if failed == 0 {
		m.stats.LastSyncStatus = "SUCCESS"
	} else {
		m.stats.LastSyncStatus = "PARTIAL"
	}
	m.statsMu.Unlock()

	m.logger.Info("Sync cycle completed",
		zap.Int("records_synced", synced),
		zap.Int("tables_failed", failed),
	)
}

// Stats 返回当前同步统计的副本
func (m *Manager) Stats() models.SyncStats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// syncTable 同步单表的一批记录，返回确认成功的记录数
func (m *Manager) syncTable(ctx context.Context, table string) (int, error) {
	records, ids, err := m.store.QueryUnsynced(ctx, table, m.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending records: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	batch := models.SyncBatch{
		FarmID:    m.opts.FarmID,
		Table:     table,
		Records:   records,
		Timestamp: m.nowFn().UTC().Format(time.RFC3339),
		Source:    "edge_gateway",
		BatchID:   fmt.Sprintf("%s_%d", table, m.nowFn().Unix()),
	}

	if err := m.pushWithRetry(ctx, &batch); err != nil {
		if m.OnBatchFailed != nil {
			m.OnBatchFailed(table)
		}
		return 0, err
	}

	if err := m.store.MarkSynced(ctx, table, ids); err != nil {
		// 云端已收到但本地标记失败，下周期会重复推送同批记录
		return 0, fmt.Errorf("failed to mark batch synced: %w", err)
	}

	if m.OnBatchSynced != nil {
		m.OnBatchSynced(table, len(ids))
	}
	m.logger.Info("Batch synced",
		zap.String("table", table),
		zap.String("batch_id", batch.BatchID),
		zap.Int("records", len(ids)),
	)

	return len(ids), nil
}

// pushWithRetry 推送一批记录，带指数退避
func (m *Manager) pushWithRetry(ctx context.Context, batch *models.SyncBatch) error {
	var lastErr error

	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			// 第 n 次重试前等待 2^(n-1) 秒：1s、2s、4s…
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			m.sleepFn(ctx, backoff)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := m.client.R().
			SetContext(ctx).
			SetBody(batch).
			Post(m.opts.APIURL)
		if err != nil {
			lastErr = fmt.Errorf("failed to push batch: %w", err)
			continue
		}

		code := resp.StatusCode()
		if code >= 200 && code < 300 {
			return nil
		}
		lastErr = fmt.Errorf("cloud responded with status %d", code)

		if code == 429 {
			// 云端限流，在退避之外再固定等待
			m.logger.Warn("Cloud rate limit hit",
				zap.String("batch_id", batch.BatchID),
			)
			m.sleepFn(ctx, rateLimitExtraWait)
		}
	}

	return fmt.Errorf("batch %s abandoned after %d attempts: %w",
		batch.BatchID, m.opts.MaxRetries, lastErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
