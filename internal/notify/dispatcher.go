// Package notify 实现报警通知的路由与各通道发送
//
// 路由表按级别固定：CRITICAL/WARNING -> 邮件 + Webhook；INFO -> 仅 Webhook。
// 各通道独立尝试：单通道失败只记录日志，不影响其他通道，也不影响
// 已完成的报警持久化。未启用的通道静默跳过。
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// Sender 单个通知通道
// Send 返回错误表示本次发送失败；未启用的通道应返回 nil（静默无操作）
type Sender interface {
	Name() string
	Send(ctx context.Context, alert *models.Alert) error
}

// Dispatcher 按级别路由报警到零个或多个通道
type Dispatcher struct {
	email   Sender
	webhook Sender
	// SMS 通道是声明的扩展点，尚未实现
	logger *zap.Logger
}

// NewDispatcher 创建分发器；任一通道可为 nil（未配置）
func NewDispatcher(email, webhook Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		email:   email,
		webhook: webhook,
		logger:  logger,
	}
}

// Dispatch 分发一条报警
// 调用方保证报警已持久化；这里的任何失败都不向上传播
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) {
	switch alert.Severity {
	case models.SeverityCritical, models.SeverityWarning:
		d.trySend(ctx, d.email, alert)
		d.trySend(ctx, d.webhook, alert)
	default:
		// INFO 只走 webhook
		d.trySend(ctx, d.webhook, alert)
	}
}

func (d *Dispatcher) trySend(ctx context.Context, sender Sender, alert *models.Alert) {
	if sender == nil {
		return
	}
	if err := sender.Send(ctx, alert); err != nil {
		d.logger.Error("Failed to send alert notification",
			zap.String("channel", sender.Name()),
			zap.String("alert_type", alert.AlertType),
			zap.Int64("alert_id", alert.ID),
			zap.Error(err),
		)
		return
	}
	d.logger.Info("Alert notification sent",
		zap.String("channel", sender.Name()),
		zap.String("alert_type", alert.AlertType),
	)
}
