// Package service 组装并驱动网关的各个处理环节
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/classifier"
	"github.com/Praneyaarora/Murgamon-project/internal/ingest"
	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// 触发系统参数检查的控制器消息类型
var systemCheckTypes = map[string]bool{
	"WATER_ALERT":     true,
	"MOISTURE_STATUS": true,
}

// RecordStore 类型化记录的持久化
type RecordStore interface {
	InsertWearable(ctx context.Context, reading *models.WearableReading) (int64, error)
	InsertController(ctx context.Context, event *models.ControllerEvent) (int64, error)
}

// HealthChecker 耳标健康与系统参数检查
type HealthChecker interface {
	CheckWearableHealth(ctx context.Context, reading *models.WearableReading) []models.Alert
	CheckSystem(ctx context.Context, deviceID string, moistureLevel *float64) []models.Alert
}

// WearableSnapshot 耳标实时快照更新（可为 nil）
type WearableSnapshot interface {
	SetWearable(ctx context.Context, reading *models.WearableReading) error
}

// Processor 消息处理循环：出队、分类、落库、触发检查
// 单条消息的任何失败都只丢弃该消息，循环不中断
type Processor struct {
	queue      *ingest.Queue
	store      RecordStore
	checker    HealthChecker
	snapshot   WearableSnapshot
	getTimeout time.Duration
	logger     *zap.Logger

	// 指标回调，可为 nil
	OnStored  func(kind string)
	OnDropped func(reason string)
}

// NewProcessor 创建处理循环
func NewProcessor(queue *ingest.Queue, store RecordStore, checker HealthChecker,
	snapshot WearableSnapshot, getTimeout time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		queue:      queue,
		store:      store,
		checker:    checker,
		snapshot:   snapshot,
		getTimeout: getTimeout,
		logger:     logger,
	}
}

// Run 持续消费队列，阻塞直到 ctx 取消
func (p *Processor) Run(ctx context.Context) {
	for {
		msg, err := p.queue.Get(ctx, p.getTimeout)
		if err != nil {
			if errors.Is(err, ingest.ErrTimeout) {
				continue
			}
			// 上下文取消
			return
		}
		p.Handle(ctx, msg)
	}
}

// Handle 处理单条解码消息
func (p *Processor) Handle(ctx context.Context, msg *models.DecodedMessage) {
	result, err := classifier.Classify(msg)
	if err != nil {
		p.logger.Warn("Message dropped",
			zap.String("raw_hex", msg.RawHex),
			zap.Int("rssi", msg.RSSI),
			zap.Error(err),
		)
		p.dropped("unclassified")
		return
	}

	switch {
	case result.Wearable != nil:
		p.handleWearable(ctx, result.Wearable)
	case result.Controller != nil:
		p.handleController(ctx, result.Controller)
	}
}

func (p *Processor) handleWearable(ctx context.Context, reading *models.WearableReading) {
	if _, err := p.store.InsertWearable(ctx, reading); err != nil {
		p.logger.Error("Failed to store wearable reading",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
		p.dropped("store_failed")
		return
	}
	p.stored("wearable")

	if p.snapshot != nil {
		if err := p.snapshot.SetWearable(ctx, reading); err != nil {
			p.logger.Warn("Failed to update wearable snapshot",
				zap.String("device_id", reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	p.checker.CheckWearableHealth(ctx, reading)

	p.logger.Debug("Wearable reading processed",
		zap.String("device_id", reading.DeviceID),
		zap.Int("heart_rate", reading.HeartRate),
		zap.Float64("temperature", reading.Temperature),
	)
}

func (p *Processor) handleController(ctx context.Context, event *models.ControllerEvent) {
	if _, err := p.store.InsertController(ctx, event); err != nil {
		p.logger.Error("Failed to store controller event",
			zap.String("device_id", event.DeviceID),
			zap.String("message_type", event.MessageType),
			zap.Error(err),
		)
		p.dropped("store_failed")
		return
	}
	p.stored("controller")

	if systemCheckTypes[event.MessageType] {
		p.checker.CheckSystem(ctx, event.DeviceID, event.MoistureLevel)
	}

	p.logger.Debug("Controller event processed",
		zap.String("device_id", event.DeviceID),
		zap.String("message_type", event.MessageType),
	)
}

func (p *Processor) stored(kind string) {
	if p.OnStored != nil {
		p.OnStored(kind)
	}
}

func (p *Processor) dropped(reason string) {
	if p.OnDropped != nil {
		p.OnDropped(reason)
	}
}
