// Package classifier 将解码后的载荷判定为类型化记录
//
// 判定采用显式的带标签联合解码：先尝试耳标读数模式，再尝试控制器事件模式，
// 都不匹配则为 Unrecognized。耳标优先级更高是既定规则：同时满足两种
// 模式的载荷判定为耳标读数。
//
// 线上键名约定（短助记键，链路带宽受限）：
//
//	耳标:   id(必需) t(必需) hr(必需) ax ay az spo2 timestamp
//	控制器: type(必需) device_id(必需) timestamp(必需) rfid_uid action moisture_level alert
//
// 数值字段缺失默认为 0；类型强转失败拒绝整条消息，不让流水线崩溃。
package classifier

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// ErrUnrecognized 载荷不匹配任何已知模式
var ErrUnrecognized = errors.New("unrecognized payload shape")

// Result 分类结果：Wearable 与 Controller 至多一个非空
type Result struct {
	Wearable   *models.WearableReading
	Controller *models.ControllerEvent
}

// Classify 对解码消息进行分类
// 返回 ErrUnrecognized 或字段强转错误时该消息应被丢弃并记录
func Classify(msg *models.DecodedMessage) (*Result, error) {
	payload := msg.Payload

	// 耳标模式优先
	if hasKeys(payload, "id", "t", "hr") {
		reading, err := decodeWearable(payload, msg.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("wearable reading: %w", err)
		}
		return &Result{Wearable: reading}, nil
	}

	if hasKeys(payload, "type", "device_id", "timestamp") {
		event, err := decodeController(payload, msg.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("controller event: %w", err)
		}
		return &Result{Controller: event}, nil
	}

	return nil, ErrUnrecognized
}

func decodeWearable(payload map[string]interface{}, receivedAt time.Time) (*models.WearableReading, error) {
	deviceID, err := stringField(payload, "id")
	if err != nil {
		return nil, err
	}

	temperature, err := floatField(payload, "t")
	if err != nil {
		return nil, err
	}
	accelX, err := floatField(payload, "ax")
	if err != nil {
		return nil, err
	}
	accelY, err := floatField(payload, "ay")
	if err != nil {
		return nil, err
	}
	accelZ, err := floatField(payload, "az")
	if err != nil {
		return nil, err
	}
	spo2, err := floatField(payload, "spo2")
	if err != nil {
		return nil, err
	}
	heartRate, err := intField(payload, "hr")
	if err != nil {
		return nil, err
	}

	return &models.WearableReading{
		DeviceID:    deviceID,
		Timestamp:   timestampField(payload, receivedAt),
		Temperature: temperature,
		AccelX:      accelX,
		AccelY:      accelY,
		AccelZ:      accelZ,
		HeartRate:   heartRate,
		SpO2:        spo2,
		Location:    "FARM_FIELD",
	}, nil
}

func decodeController(payload map[string]interface{}, receivedAt time.Time) (*models.ControllerEvent, error) {
	deviceID, err := stringField(payload, "device_id")
	if err != nil {
		return nil, err
	}
	messageType, err := stringField(payload, "type")
	if err != nil {
		return nil, err
	}

	event := &models.ControllerEvent{
		DeviceID:    deviceID,
		Timestamp:   timestampField(payload, receivedAt),
		MessageType: messageType,
		Location:    "FARM_GATE",
	}

	if raw, ok := payload["rfid_uid"]; ok && raw != nil {
		s, err := coerceString(raw, "rfid_uid")
		if err != nil {
			return nil, err
		}
		event.RFIDTag = &s
	}
	if raw, ok := payload["action"]; ok && raw != nil {
		s, err := coerceString(raw, "action")
		if err != nil {
			return nil, err
		}
		event.Action = &s
	}
	if raw, ok := payload["moisture_level"]; ok && raw != nil {
		f, err := coerceFloat(raw, "moisture_level")
		if err != nil {
			return nil, err
		}
		event.MoistureLevel = &f
	}
	if raw, ok := payload["alert"]; ok && raw != nil {
		s, err := coerceString(raw, "alert")
		if err != nil {
			return nil, err
		}
		event.AlertText = &s
	}

	return event, nil
}

func hasKeys(payload map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if _, ok := payload[key]; !ok {
			return false
		}
	}
	return true
}

func stringField(payload map[string]interface{}, key string) (string, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	return coerceString(raw, key)
}

func coerceString(raw interface{}, key string) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string: %T", key, raw)
	}
	return s, nil
}

// floatField 缺失默认为 0（哨兵值，下游报警引擎据此识别"无读数"）
func floatField(payload map[string]interface{}, key string) (float64, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return 0, nil
	}
	return coerceFloat(raw, key)
}

func coerceFloat(raw interface{}, key string) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %q", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q is not numeric: %T", key, raw)
	}
}

func intField(payload map[string]interface{}, key string) (int, error) {
	f, err := floatField(payload, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// timestampField 解析 RFC3339 时间戳；缺失或不可解析时退回接收时刻
func timestampField(payload map[string]interface{}, receivedAt time.Time) time.Time {
	raw, ok := payload["timestamp"]
	if !ok {
		return receivedAt
	}
	s, ok := raw.(string)
	if !ok {
		return receivedAt
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return receivedAt
	}
	return ts
}
