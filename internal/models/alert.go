package models

import "time"

// 报警级别
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// 阈值条件类型
const (
	ConditionMin   = "min"
	ConditionMax   = "max"
	ConditionRange = "range"
)

// AlertRule 报警规则（按参数名索引）
// 自定义规则整条替换默认规则，不做字段级合并
type AlertRule struct {
	Parameter       string   `json:"parameter"`
	Condition       string   `json:"condition"` // min / max / range
	ThresholdMin    *float64 `json:"min,omitempty"`
	ThresholdMax    *float64 `json:"max,omitempty"`
	Severity        string   `json:"severity"`
	CooldownMinutes int      `json:"cooldown"`
}

// Alert 报警事件
// id 由存储层生成；除 acknowledged/resolved 外不可变
type Alert struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	AlertType    string    `json:"alert_type"`
	DeviceID     string    `json:"device_id"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity"`
	Acknowledged bool      `json:"acknowledged"`
	Resolved     bool      `json:"resolved"`
}

// AlertStats 报警统计（最近24小时按级别计数 + 未确认总数）
type AlertStats struct {
	BySeverity24h  map[string]int `json:"recent_alerts_24h"`
	Unacknowledged int            `json:"unacknowledged_count"`
}
