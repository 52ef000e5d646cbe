package alert

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// 报警类型
const (
	TypeEnvironmental = "ENVIRONMENTAL_THRESHOLD"
	TypeHeartRate     = "ANIMAL_HEART_RATE"
	TypeOxygenLevel   = "ANIMAL_OXYGEN_LEVEL"
	TypeAnimalTemp    = "ANIMAL_TEMPERATURE"
	TypeLowActivity   = "LOW_ACTIVITY"
	TypeWaterTank     = "LOW_WATER_TANK"
)

// 低活动量启发式：加速度矢量模长阈值与独立冷却时长（不走规则表）
const (
	lowActivityThreshold       = 0.3
	lowActivityCooldownMinutes = 180
)

// Store 报警持久化（报警先落库，id 由存储层生成）
type Store interface {
	CreateAlert(ctx context.Context, alert *models.Alert) (int64, error)
}

// Notifier 报警通知分发（尽力而为，失败不影响持久化）
type Notifier interface {
	Dispatch(ctx context.Context, alert *models.Alert)
}

// Engine 报警规则引擎
// 规则表加载后只读；冷却账本是唯一的可变共享状态
type Engine struct {
	rules    map[string]models.AlertRule
	ledger   *CooldownLedger
	store    Store
	notifier Notifier
	logger   *zap.Logger

	// OnAlert 统计回调（可选），每生成一条报警调用一次
	OnAlert func(severity string)
}

// NewEngine 创建规则引擎
func NewEngine(rules map[string]models.AlertRule, ledger *CooldownLedger, store Store, notifier Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		rules:    rules,
		ledger:   ledger,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate 评估单个值是否违反规则，返回违规描述
// range 为双边闭区间：等于边界不违规；低于下界优先于高于上界
func Evaluate(param string, value float64, rule models.AlertRule) (string, bool) {
	switch rule.Condition {
	case models.ConditionMin:
		if rule.ThresholdMin != nil && value < *rule.ThresholdMin {
			return fmt.Sprintf("%s too low: %.2f", humanize(param), value), true
		}
	case models.ConditionMax:
		if rule.ThresholdMax != nil && value > *rule.ThresholdMax {
			return fmt.Sprintf("%s too high: %.2f", humanize(param), value), true
		}
	case models.ConditionRange:
		if rule.ThresholdMin != nil && value < *rule.ThresholdMin {
			return fmt.Sprintf("%s too low: %.2f", humanize(param), value), true
		}
		if rule.ThresholdMax != nil && value > *rule.ThresholdMax {
			return fmt.Sprintf("%s too high: %.2f", humanize(param), value), true
		}
	}
	return "", false
}

// CheckEnvironmental 评估环境读数的所有非空字段
// 报警键 = 字段名；单个字段的故障不影响其余字段
func (e *Engine) CheckEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) []models.Alert {
	var alerts []models.Alert

	for param, value := range reading.Fields {
		if value == nil {
			continue
		}
		rule, ok := e.rules[param]
		if !ok {
			continue
		}

		message, violated := Evaluate(param, *value, rule)
		if !violated || !e.ledger.Allow(param, rule.CooldownMinutes) {
			continue
		}

		if alert := e.emit(ctx, TypeEnvironmental, models.EnvStationID, message, rule.Severity, param); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	return alerts
}

// CheckWearableHealth 评估耳标读数的健康参数
// 心率与血氧仅在原始值 > 0 时评估（0 是"无读数"哨兵，不是生理值）；
// 体温走 animal_temperature 规则而非通用 temperature 规则；
// 报警键按设备限定：<deviceID>_<shortcode>
func (e *Engine) CheckWearableHealth(ctx context.Context, reading *models.WearableReading) []models.Alert {
	var alerts []models.Alert
	deviceID := reading.DeviceID

	if reading.HeartRate > 0 {
		if rule, ok := e.rules["heart_rate"]; ok {
			message, violated := Evaluate("heart_rate", float64(reading.HeartRate), rule)
			key := deviceID + "_hr"
			if violated && e.ledger.Allow(key, rule.CooldownMinutes) {
				msg := fmt.Sprintf("Animal %s: %s", deviceID, message)
				if alert := e.emit(ctx, TypeHeartRate, deviceID, msg, rule.Severity, key); alert != nil {
					alerts = append(alerts, *alert)
				}
			}
		}
	}

	if reading.SpO2 > 0 {
		if rule, ok := e.rules["spo2"]; ok {
			message, violated := Evaluate("spo2", reading.SpO2, rule)
			key := deviceID + "_spo2"
			if violated && e.ledger.Allow(key, rule.CooldownMinutes) {
				msg := fmt.Sprintf("Animal %s: %s", deviceID, message)
				if alert := e.emit(ctx, TypeOxygenLevel, deviceID, msg, rule.Severity, key); alert != nil {
					alerts = append(alerts, *alert)
				}
			}
		}
	}

	if rule, ok := e.rules["animal_temperature"]; ok {
		message, violated := Evaluate("animal_temperature", reading.Temperature, rule)
		key := deviceID + "_temp"
		if violated && e.ledger.Allow(key, rule.CooldownMinutes) {
			msg := fmt.Sprintf("Animal %s: %s", deviceID, message)
			if alert := e.emit(ctx, TypeAnimalTemp, deviceID, msg, rule.Severity, key); alert != nil {
				alerts = append(alerts, *alert)
			}
		}
	}

	// 低活动量启发式：加速度矢量模长过低，独立 180 分钟冷却
	activity := math.Sqrt(reading.AccelX*reading.AccelX +
		reading.AccelY*reading.AccelY +
		reading.AccelZ*reading.AccelZ)
	if activity < lowActivityThreshold {
		key := deviceID + "_activity"
		if e.ledger.Allow(key, lowActivityCooldownMinutes) {
			msg := fmt.Sprintf("Animal %s: Very low activity detected (activity=%.2f)", deviceID, activity)
			if alert := e.emit(ctx, TypeLowActivity, deviceID, msg, models.SeverityInfo, key); alert != nil {
				alerts = append(alerts, *alert)
			}
		}
	}

	return alerts
}

// CheckSystem 评估控制器上报的系统参数
// 水箱液位所有控制器共用一个冷却桶（键恒为 water_tank），设备无关——
// 这是保留的既定行为
func (e *Engine) CheckSystem(ctx context.Context, deviceID string, moistureLevel *float64) []models.Alert {
	var alerts []models.Alert

	if moistureLevel == nil {
		return alerts
	}
	rule, ok := e.rules["moisture_level"]
	if !ok {
		return alerts
	}

	message, violated := Evaluate("moisture_level", *moistureLevel, rule)
	if violated && e.ledger.Allow("water_tank", rule.CooldownMinutes) {
		if deviceID == "" {
			deviceID = "SPRINKLER_SYSTEM"
		}
		if alert := e.emit(ctx, TypeWaterTank, deviceID, message, rule.Severity, "water_tank"); alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	return alerts
}

// emit 生成一条报警：先落库，再记录冷却，最后尽力分发通知
// 通知失败绝不回滚冷却记录；落库失败则本条报警放弃且不占用冷却
func (e *Engine) emit(ctx context.Context, alertType, deviceID, message, severity, alertKey string) *models.Alert {
	alert := &models.Alert{
		Timestamp: time.Now().UTC(),
		AlertType: alertType,
		DeviceID:  deviceID,
		Message:   message,
		Severity:  severity,
	}

	id, err := e.store.CreateAlert(ctx, alert)
	if err != nil {
		e.logger.Error("Failed to persist alert",
			zap.String("alert_type", alertType),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return nil
	}
	alert.ID = id

	e.ledger.Record(alertKey)

	if e.notifier != nil {
		e.notifier.Dispatch(ctx, alert)
	}
	if e.OnAlert != nil {
		e.OnAlert(severity)
	}

	e.logger.Warn("Alert generated",
		zap.String("severity", severity),
		zap.String("alert_type", alertType),
		zap.String("device_id", deviceID),
		zap.String("message", message),
	)

	return alert
}

// humanize 将参数名转为可读形式："heart_rate" -> "Heart Rate"
func humanize(param string) string {
	words := strings.Split(param, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
