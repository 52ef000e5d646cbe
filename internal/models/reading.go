package models

import "time"

// RSSIUnknown 信号强度未知时的哨兵值
const RSSIUnknown = -999

// EnvStationID 环境监测站固定设备ID
const EnvStationID = "BOM_STATION"

// DecodedMessage 从无线链路解码出的一条应用消息
// payload 为任意 JSON 对象，由 classifier 进一步判定类型
type DecodedMessage struct {
	Payload    map[string]interface{} `json:"payload"`
	RSSI       int                    `json:"rssi"`        // 链路信号强度，未知时为 RSSIUnknown
	ReceivedAt time.Time              `json:"received_at"` // 接收时刻（本机单调时钟）
	RawHex     string                 `json:"raw_hex"`
}

// WearableReading 耳标（可穿戴设备）读数
type WearableReading struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"` // 体温（摄氏度）
	AccelX      float64   `json:"accel_x"`
	AccelY      float64   `json:"accel_y"`
	AccelZ      float64   `json:"accel_z"`
	HeartRate   int       `json:"heart_rate"` // 0 表示无有效读数
	SpO2        float64   `json:"spo2"`       // 0 表示无有效读数
	Location    string    `json:"location"`
}

// ControllerEvent 喷淋/消毒控制器事件
type ControllerEvent struct {
	DeviceID      string    `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	MessageType   string    `json:"message_type"`
	RFIDTag       *string   `json:"rfid_uid,omitempty"`
	Action        *string   `json:"action,omitempty"`
	MoistureLevel *float64  `json:"moisture_level,omitempty"`
	AlertText     *string   `json:"alert,omitempty"`
	Location      string    `json:"location"`
}

// EnvironmentalReading 环境传感器读数
// Fields 中缺失/nil 表示该传感器本周期不可用
type EnvironmentalReading struct {
	DeviceID  string              `json:"device_id"` // 固定为 EnvStationID
	Timestamp time.Time           `json:"timestamp"`
	Fields    map[string]*float64 `json:"fields"`
	Camera    string              `json:"camera_image,omitempty"`
}

// NewEnvironmentalReading 创建环境读数
func NewEnvironmentalReading(fields map[string]*float64) *EnvironmentalReading {
	return &EnvironmentalReading{
		DeviceID:  EnvStationID,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}
}
