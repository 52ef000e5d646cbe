package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// WebhookPayload Webhook 通知载荷
type WebhookPayload struct {
	AlertID   int64  `json:"alert_id"`
	Timestamp string `json:"timestamp"`
	AlertType string `json:"alert_type"`
	DeviceID  string `json:"device_id"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	FarmID    string `json:"farm_id"`
}

// WebhookSender Webhook 通知通道
type WebhookSender struct {
	client  *resty.Client
	url     string
	farmID  string
	enabled bool
}

// NewWebhookSender 创建 Webhook 通道
func NewWebhookSender(url, farmID string, enabled bool) *WebhookSender {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookSender{
		client:  client,
		url:     url,
		farmID:  farmID,
		enabled: enabled && url != "",
	}
}

// Name 通道名称
func (s *WebhookSender) Name() string {
	return "webhook"
}

// Send 发送 Webhook 通知；未启用时静默返回 nil
func (s *WebhookSender) Send(ctx context.Context, alert *models.Alert) error {
	if !s.enabled {
		return nil
	}

	payload := WebhookPayload{
		AlertID:   alert.ID,
		Timestamp: alert.Timestamp.Format(time.RFC3339),
		AlertType: alert.AlertType,
		DeviceID:  alert.DeviceID,
		Message:   alert.Message,
		Severity:  alert.Severity,
		FarmID:    s.farmID,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode())
	}

	return nil
}
