// Package alert 实现阈值规则评估、冷却去抖与报警生成
package alert

import "github.com/Praneyaarora/Murgamon-project/internal/models"

func f(v float64) *float64 { return &v }

// DefaultRules 农场参数的默认报警规则
// 环境参数、动物健康参数与系统参数各一组
func DefaultRules() map[string]models.AlertRule {
	return map[string]models.AlertRule{
		// 环境参数
		"temperature": {Parameter: "temperature", Condition: models.ConditionRange, ThresholdMin: f(5.0), ThresholdMax: f(50.0), Severity: models.SeverityWarning, CooldownMinutes: 30},
		"humidity":    {Parameter: "humidity", Condition: models.ConditionRange, ThresholdMin: f(20.0), ThresholdMax: f(95.0), Severity: models.SeverityWarning, CooldownMinutes: 30},
		"co2":         {Parameter: "co2", Condition: models.ConditionMax, ThresholdMax: f(1200.0), Severity: models.SeverityWarning, CooldownMinutes: 60},
		"nh3":         {Parameter: "nh3", Condition: models.ConditionMax, ThresholdMax: f(30.0), Severity: models.SeverityCritical, CooldownMinutes: 15},
		"pm25":        {Parameter: "pm25", Condition: models.ConditionMax, ThresholdMax: f(100.0), Severity: models.SeverityWarning, CooldownMinutes: 60},
		"co":          {Parameter: "co", Condition: models.ConditionMax, ThresholdMax: f(50.0), Severity: models.SeverityCritical, CooldownMinutes: 10},

		// 动物健康参数
		"heart_rate":         {Parameter: "heart_rate", Condition: models.ConditionRange, ThresholdMin: f(30.0), ThresholdMax: f(150.0), Severity: models.SeverityWarning, CooldownMinutes: 30},
		"spo2":               {Parameter: "spo2", Condition: models.ConditionMin, ThresholdMin: f(88.0), Severity: models.SeverityCritical, CooldownMinutes: 15},
		"animal_temperature": {Parameter: "animal_temperature", Condition: models.ConditionRange, ThresholdMin: f(35.0), ThresholdMax: f(42.0), Severity: models.SeverityWarning, CooldownMinutes: 60},

		// 系统参数
		"moisture_level": {Parameter: "moisture_level", Condition: models.ConditionMin, ThresholdMin: f(20.0), Severity: models.SeverityWarning, CooldownMinutes: 120},
	}
}

// ResolveRules 合并默认规则与自定义规则
// 自定义条目整条替换同名默认规则（不做字段级合并），这是既定策略
func ResolveRules(custom map[string]models.AlertRule) map[string]models.AlertRule {
	rules := DefaultRules()
	for param, rule := range custom {
		rule.Parameter = param
		rules[param] = rule
	}
	return rules
}
