// Package cache 维护 Redis 中的实时快照
//
// 快照供本地看板与运维工具直接读取，不参与报警判定或云同步。
// 键空间：farm:env:latest、farm:wearable:<device_id>:latest、
// farm:alerts:active。所有值为 JSON，带 TTL 防止断流后读到陈旧数据。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

const (
	envLatestKey      = "farm:env:latest"
	wearableKeyFormat = "farm:wearable:%s:latest"
	activeAlertsKey   = "farm:alerts:active"
)

// SnapshotCache Redis 实时快照管理器
type SnapshotCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *zap.Logger
}

// NewSnapshotCache 创建快照管理器
func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

// SetEnvironmental 更新最新环境读数快照
func (c *SnapshotCache) SetEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) error {
	return c.setJSON(ctx, envLatestKey, reading)
}

// GetEnvironmental 读取最新环境读数快照；无数据时返回 redis.Nil
func (c *SnapshotCache) GetEnvironmental(ctx context.Context) (*models.EnvironmentalReading, error) {
	var reading models.EnvironmentalReading
	if err := c.getJSON(ctx, envLatestKey, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}

// SetWearable 更新某设备最新耳标读数快照
func (c *SnapshotCache) SetWearable(ctx context.Context, reading *models.WearableReading) error {
	key := fmt.Sprintf(wearableKeyFormat, reading.DeviceID)
	return c.setJSON(ctx, key, reading)
}

// GetWearable 读取某设备最新耳标读数快照；无数据时返回 redis.Nil
func (c *SnapshotCache) GetWearable(ctx context.Context, deviceID string) (*models.WearableReading, error) {
	var reading models.WearableReading
	key := fmt.Sprintf(wearableKeyFormat, deviceID)
	if err := c.getJSON(ctx, key, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}

// AppendActiveAlert 将新报警追加进活跃报警快照
// 读-改-写不加锁：单写者（报警引擎），快照容忍偶发丢失
func (c *SnapshotCache) AppendActiveAlert(ctx context.Context, alert *models.Alert) error {
	var alerts []models.Alert
	err := c.getJSON(ctx, activeAlertsKey, &alerts)
	if err != nil && err != redis.Nil {
		return err
	}

	alerts = append(alerts, *alert)
	return c.setJSON(ctx, activeAlertsKey, alerts)
}

// GetActiveAlerts 读取活跃报警快照；无数据时返回空切片
func (c *SnapshotCache) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := c.getJSON(ctx, activeAlertsKey, &alerts)
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *SnapshotCache) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot %s: %w", key, err)
	}

	c.logger.Debug("Updated realtime snapshot", zap.String("key", key))
	return nil
}

func (c *SnapshotCache) getJSON(ctx context.Context, key string, out interface{}) error {
	val, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return redis.Nil
		}
		return fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return nil
}
