package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/alert"
	"github.com/Praneyaarora/Murgamon-project/internal/ingest"
	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// fakeRecordStore 记录插入的读数与事件
type fakeRecordStore struct {
	mu          sync.Mutex
	wearables   []models.WearableReading
	controllers []models.ControllerEvent
	fail        bool
}

func (s *fakeRecordStore) InsertWearable(_ context.Context, r *models.WearableReading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errors.New("db down")
	}
	s.wearables = append(s.wearables, *r)
	return int64(len(s.wearables)), nil
}

func (s *fakeRecordStore) InsertController(_ context.Context, e *models.ControllerEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errors.New("db down")
	}
	s.controllers = append(s.controllers, *e)
	return int64(len(s.controllers)), nil
}

// fakeHealthChecker 记录检查调用
type fakeHealthChecker struct {
	mu           sync.Mutex
	wearables    []models.WearableReading
	systemChecks []string
}

func (c *fakeHealthChecker) CheckWearableHealth(_ context.Context, r *models.WearableReading) []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wearables = append(c.wearables, *r)
	return nil
}

func (c *fakeHealthChecker) CheckSystem(_ context.Context, deviceID string, _ *float64) []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemChecks = append(c.systemChecks, deviceID)
	return nil
}

// alertRecorder 供端到端测试使用的报警存储
type alertRecorder struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (s *alertRecorder) CreateAlert(_ context.Context, a *models.Alert) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *a)
	return int64(len(s.alerts)), nil
}

func wearableMsg(payload map[string]interface{}) *models.DecodedMessage {
	return &models.DecodedMessage{
		Payload:    payload,
		RSSI:       -42,
		ReceivedAt: time.Now().UTC(),
	}
}

func newTestProcessor(store RecordStore, checker HealthChecker) *Processor {
	return NewProcessor(ingest.NewQueue(10), store, checker, nil, time.Second, zap.NewNop())
}

func TestHandle_WearableStoredAndChecked(t *testing.T) {
	store := &fakeRecordStore{}
	checker := &fakeHealthChecker{}
	p := newTestProcessor(store, checker)

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"id": "COW_042", "t": 38.6, "hr": 72.0,
		"ax": 0.1, "ay": 0.2, "az": 0.9, "spo2": 97.0,
	}))

	require.Len(t, store.wearables, 1)
	assert.Equal(t, "COW_042", store.wearables[0].DeviceID)
	require.Len(t, checker.wearables, 1)
	assert.Equal(t, 72, checker.wearables[0].HeartRate)
}

func TestHandle_ControllerMoistureTriggersSystemCheck(t *testing.T) {
	store := &fakeRecordStore{}
	checker := &fakeHealthChecker{}
	p := newTestProcessor(store, checker)

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"type": "MOISTURE_STATUS", "device_id": "SPRK_01",
		"timestamp": "2026-08-26T10:00:00Z", "moisture_level": 15.0,
	}))

	require.Len(t, store.controllers, 1)
	assert.Equal(t, []string{"SPRK_01"}, checker.systemChecks)
}

func TestHandle_RFIDEventSkipsSystemCheck(t *testing.T) {
	store := &fakeRecordStore{}
	checker := &fakeHealthChecker{}
	p := newTestProcessor(store, checker)

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"type": "RFID_SCAN", "device_id": "GATE_01",
		"timestamp": "2026-08-26T10:00:00Z", "rfid_uid": "04A1B2C3",
	}))

	require.Len(t, store.controllers, 1)
	assert.Empty(t, checker.systemChecks)
}

func TestHandle_UnrecognizedPayloadDropped(t *testing.T) {
	store := &fakeRecordStore{}
	checker := &fakeHealthChecker{}
	p := newTestProcessor(store, checker)

	var droppedReason string
	p.OnDropped = func(reason string) { droppedReason = reason }

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"hello": "world",
	}))

	assert.Empty(t, store.wearables)
	assert.Empty(t, store.controllers)
	assert.Equal(t, "unclassified", droppedReason)
}

func TestHandle_StoreFailureSkipsHealthCheck(t *testing.T) {
	store := &fakeRecordStore{fail: true}
	checker := &fakeHealthChecker{}
	p := newTestProcessor(store, checker)

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"id": "COW_042", "t": 38.6, "hr": 72.0,
	}))

	assert.Empty(t, checker.wearables)
}

func TestRun_ConsumesQueueUntilCancel(t *testing.T) {
	queue := ingest.NewQueue(10)
	store := &fakeRecordStore{}
	checker := &fakeHealthChecker{}
	p := NewProcessor(queue, store, checker, nil, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.NoError(t, queue.Put(ctx, wearableMsg(map[string]interface{}{
		"id": "COW_001", "t": 38.0, "hr": 70.0,
	})))

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.wearables) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancel")
	}
}

// ============================================
// 端到端：分类 -> 落库 -> 规则引擎
// ============================================

func TestEndToEnd_SedentaryAnimalWithNoVitals(t *testing.T) {
	store := &fakeRecordStore{}
	alerts := &alertRecorder{}
	engine := alert.NewEngine(alert.DefaultRules(), alert.NewCooldownLedger(), alerts, nil, zap.NewNop())
	p := newTestProcessor(store, engine)

	// 传感器未夹紧：hr/spo2 为 0，动物静止不动
	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"id": "TAG1", "t": 39.0, "hr": 0.0,
		"ax": 0.05, "ay": 0.02, "az": 0.1, "spo2": 0.0,
	}))

	// 读数落库
	require.Len(t, store.wearables, 1)
	assert.Equal(t, "TAG1", store.wearables[0].DeviceID)

	// 0 值生命体征不报警，只有低活动量 INFO
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "LOW_ACTIVITY", alerts.alerts[0].AlertType)
	assert.Equal(t, models.SeverityInfo, alerts.alerts[0].Severity)
	assert.Equal(t, "TAG1", alerts.alerts[0].DeviceID)
}

func TestEndToEnd_LowMoistureRaisesWaterTankAlert(t *testing.T) {
	store := &fakeRecordStore{}
	alerts := &alertRecorder{}
	engine := alert.NewEngine(alert.DefaultRules(), alert.NewCooldownLedger(), alerts, nil, zap.NewNop())
	p := newTestProcessor(store, engine)

	p.Handle(context.Background(), wearableMsg(map[string]interface{}{
		"type": "WATER_ALERT", "device_id": "SPRK_01",
		"timestamp": "2026-08-26T10:00:00Z", "moisture_level": 12.0,
	}))

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "LOW_WATER_TANK", alerts.alerts[0].AlertType)
	assert.Equal(t, models.SeverityWarning, alerts.alerts[0].Severity)
}
