package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// EmailConfig 邮件通道配置
type EmailConfig struct {
	Enabled    bool
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	Recipients []string
}

// smtpSendFn 便于测试替换的发送函数，签名同 net/smtp.SendMail
type smtpSendFn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender SMTP 邮件通知通道
type EmailSender struct {
	cfg    EmailConfig
	sendFn smtpSendFn
}

// NewEmailSender 创建邮件通道
func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		sendFn: smtp.SendMail,
	}
}

// Name 通道名称
func (s *EmailSender) Name() string {
	return "email"
}

// Send 发送报警邮件；未启用或配置不全时静默返回 nil
func (s *EmailSender) Send(_ context.Context, alert *models.Alert) error {
	if !s.cfg.Enabled {
		return nil
	}
	if s.cfg.SMTPServer == "" || s.cfg.Username == "" || s.cfg.Password == "" || len(s.cfg.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[FARM ALERT - %s] %s", alert.Severity, alert.AlertType)
	body := fmt.Sprintf(`Farm Alert Notification

Alert Type: %s
Severity: %s
Device: %s
Time: %s
Message: %s

Please check your farm monitoring system for more details.
`, alert.AlertType, alert.Severity, alert.DeviceID, alert.Timestamp.Format("2006-01-02 15:04:05 MST"), alert.Message)

	msg := strings.Join([]string{
		"From: " + s.cfg.Username,
		"To: " + strings.Join(s.cfg.Recipients, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPServer, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPServer)

	if err := s.sendFn(addr, auth, s.cfg.Username, s.cfg.Recipients, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
