package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// Config BOM 网关配置
type Config struct {
	// 农场标识（随同步载荷上报）
	FarmID string

	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// 无线链路配置
	LoRa struct {
		Device    string // 串口设备路径，空值表示无无线模块（仅本机传感器模式）
		Frequency string // P2P 频率（Hz）
		// 接收缓冲在无新数据超过该秒数后丢弃残帧
		StaleBufferSeconds int
	}

	// 摄取队列配置
	Ingest struct {
		QueueSize  int // 有界队列容量，默认 1000
		GetTimeout int // 消费端取消息超时（秒），保证关停可在该延迟内被观察到
	}

	// 传感器轮询配置
	Sensors struct {
		ReadInterval   int // 环境读数间隔（秒）
		CameraInterval int // 拍照间隔（秒）
	}

	// 云同步配置
	Cloud struct {
		Enabled      bool
		APIURL       string
		APIKey       string
		SyncInterval int // 同步周期（秒），默认 300
		BatchSize    int // 单批行数上限，默认 100
		MaxRetries   int // 单批最大尝试次数，默认 3
	}

	// 通知通道配置
	Notify struct {
		Email struct {
			Enabled    bool
			SMTPServer string
			SMTPPort   int
			Username   string
			Password   string
			Recipients []string
		}
		Webhook struct {
			Enabled bool
			URL     string
		}
	}

	// 自定义报警规则（整条替换默认规则）
	AlertRules map[string]models.AlertRule

	Metrics struct {
		Addr string // /metrics 与 /healthz 监听地址
	}

	Stats struct {
		Interval int // 统计上报间隔（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.FarmID = getEnv("FARM_ID", "FARM_001")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "murgamon")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.LoRa.Device = getEnv("LORA_DEVICE", "")
	cfg.LoRa.Frequency = getEnv("LORA_FREQUENCY", "866000000")
	cfg.LoRa.StaleBufferSeconds = getEnvInt("LORA_STALE_BUFFER_SECONDS", 5)

	cfg.Ingest.QueueSize = getEnvInt("INGEST_QUEUE_SIZE", 1000)
	cfg.Ingest.GetTimeout = getEnvInt("INGEST_GET_TIMEOUT", 1)

	cfg.Sensors.ReadInterval = getEnvInt("SENSOR_READ_INTERVAL", 30)
	cfg.Sensors.CameraInterval = getEnvInt("CAMERA_INTERVAL", 600)

	cfg.Cloud.Enabled = getEnvBool("CLOUD_ENABLED", false)
	cfg.Cloud.APIURL = getEnv("CLOUD_API_URL", "")
	cfg.Cloud.APIKey = getEnv("CLOUD_API_KEY", "")
	cfg.Cloud.SyncInterval = getEnvInt("CLOUD_SYNC_INTERVAL", 300)
	cfg.Cloud.BatchSize = getEnvInt("CLOUD_BATCH_SIZE", 100)
	cfg.Cloud.MaxRetries = getEnvInt("CLOUD_MAX_RETRIES", 3)

	cfg.Notify.Email.Enabled = getEnvBool("EMAIL_ALERTS_ENABLED", false)
	cfg.Notify.Email.SMTPServer = getEnv("EMAIL_SMTP_SERVER", "")
	cfg.Notify.Email.SMTPPort = getEnvInt("EMAIL_SMTP_PORT", 587)
	cfg.Notify.Email.Username = getEnv("EMAIL_USERNAME", "")
	cfg.Notify.Email.Password = getEnv("EMAIL_PASSWORD", "")
	if recipients := os.Getenv("EMAIL_RECIPIENTS"); recipients != "" {
		cfg.Notify.Email.Recipients = splitAndTrim(recipients)
	}
	cfg.Notify.Webhook.Enabled = getEnvBool("WEBHOOK_ALERTS_ENABLED", false)
	cfg.Notify.Webhook.URL = getEnv("WEBHOOK_URL", "")

	// 自定义报警规则：JSON 格式，按参数名整条替换默认规则
	if rulesJSON := os.Getenv("ALERT_RULES_JSON"); rulesJSON != "" {
		rules := make(map[string]models.AlertRule)
		if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
			return nil, fmt.Errorf("failed to parse ALERT_RULES_JSON: %w", err)
		}
		for param, rule := range rules {
			rule.Parameter = param
			if rule.Condition == "" {
				rule.Condition = models.ConditionMax
			}
			if rule.Severity == "" {
				rule.Severity = models.SeverityWarning
			}
			rules[param] = rule
		}
		cfg.AlertRules = rules
	}

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9090")
	cfg.Stats.Interval = getEnvInt("STATS_INTERVAL", 300)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Database, c.Database.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
