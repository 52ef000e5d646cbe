package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "FARM_001", cfg.FarmID)
	assert.Equal(t, 1000, cfg.Ingest.QueueSize)
	assert.Equal(t, 30, cfg.Sensors.ReadInterval)
	assert.Equal(t, 600, cfg.Sensors.CameraInterval)
	assert.Equal(t, 300, cfg.Cloud.SyncInterval)
	assert.Equal(t, 100, cfg.Cloud.BatchSize)
	assert.Equal(t, 3, cfg.Cloud.MaxRetries)
	assert.Equal(t, 5, cfg.LoRa.StaleBufferSeconds)
	assert.False(t, cfg.Cloud.Enabled)
	assert.Nil(t, cfg.AlertRules)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FARM_ID", "FARM_042")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("CLOUD_ENABLED", "true")
	t.Setenv("EMAIL_RECIPIENTS", " a@farm.io, b@farm.io ,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "FARM_042", cfg.FarmID)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.True(t, cfg.Cloud.Enabled)
	assert.Equal(t, []string{"a@farm.io", "b@farm.io"}, cfg.Notify.Email.Recipients)
}

func TestLoad_CustomAlertRules(t *testing.T) {
	t.Setenv("ALERT_RULES_JSON", `{"co2": {"condition": "max", "max": 900, "severity": "CRITICAL", "cooldown": 30}}`)

	cfg, err := Load()

	require.NoError(t, err)
	rule, ok := cfg.AlertRules["co2"]
	require.True(t, ok)
	assert.Equal(t, "co2", rule.Parameter)
	assert.Equal(t, models.ConditionMax, rule.Condition)
	assert.Equal(t, 900.0, *rule.ThresholdMax)
	assert.Equal(t, models.SeverityCritical, rule.Severity)
	assert.Equal(t, 30, rule.CooldownMinutes)
}

func TestLoad_CustomRuleDefaultsFilledIn(t *testing.T) {
	t.Setenv("ALERT_RULES_JSON", `{"dust": {"max": 10}}`)

	cfg, err := Load()

	require.NoError(t, err)
	rule := cfg.AlertRules["dust"]
	assert.Equal(t, models.ConditionMax, rule.Condition)
	assert.Equal(t, models.SeverityWarning, rule.Severity)
}

func TestLoad_InvalidAlertRulesJSON(t *testing.T) {
	t.Setenv("ALERT_RULES_JSON", `{broken`)

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_RULES_JSON")
}

func TestGetDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.farm.local")
	t.Setenv("DB_NAME", "bom")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Contains(t, cfg.GetDSN(), "host=db.farm.local")
	assert.Contains(t, cfg.GetDSN(), "dbname=bom")
}
