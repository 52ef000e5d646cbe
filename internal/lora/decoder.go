// Package lora 实现无线链路的帧解码与接收循环
//
// 链路以事件行形式上报接收帧：
//
//	+EVT:RXP2P,RSSI:-42,SNR:8:48656C6C6F
//
// 最后一个冒号分段为十六进制载荷，解码顺序为 hex -> UTF-8 -> JSON 对象。
// 任一阶段失败则整帧丢弃，不重试（无线帧不会重传）。
package lora

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// 接收事件标记与信号强度标记
const (
	rxEventMarker = "+EVT:RXP2P"
	rssiMarker    = "RSSI"
)

// 帧错误类型
var (
	// ErrMalformedFrame 行结构不完整（冒号分段不足）
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUndecodableFrame 载荷无法解码（hex/UTF-8/JSON 任一阶段失败）
	ErrUndecodableFrame = errors.New("undecodable frame")
)

// Decoder 将链路事件行解码为 DecodedMessage
// 解码是纯函数式的：同一行至多解码一次，失败即丢弃
type Decoder struct{}

// NewDecoder 创建帧解码器
func NewDecoder() *Decoder {
	return &Decoder{}
}

// IsFrameLine 判断一行是否为接收事件行
func (d *Decoder) IsFrameLine(line string) bool {
	return strings.Contains(line, rxEventMarker)
}

// DecodeLine 解码一条完整的接收事件行
// 返回 ErrMalformedFrame 或 ErrUndecodableFrame 时该帧应被丢弃
func (d *Decoder) DecodeLine(line string) (*models.DecodedMessage, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: expected at least 4 segments, got %d", ErrMalformedFrame, len(parts))
	}

	hexPayload := strings.TrimSpace(parts[len(parts)-1])
	if hexPayload == "" {
		return nil, fmt.Errorf("%w: empty hex payload", ErrMalformedFrame)
	}

	rssi := extractRSSI(parts)

	raw, err := hex.DecodeString(hexPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %v", ErrUndecodableFrame, err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrUndecodableFrame)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrUndecodableFrame, err)
	}

	return &models.DecodedMessage{
		Payload:    payload,
		RSSI:       rssi,
		ReceivedAt: time.Now().UTC(),
		RawHex:     hexPayload,
	}, nil
}

// extractRSSI 从分段中提取信号强度，缺失或不可解析时返回哨兵值
func extractRSSI(parts []string) int {
	for i, part := range parts {
		if !strings.Contains(part, rssiMarker) {
			continue
		}
		// 形如 "RSSI" 的分段，数值在下一分段的逗号前，如 "-42,SNR"
		if i+1 < len(parts) {
			value := parts[i+1]
			if idx := strings.Index(value, ","); idx >= 0 {
				value = value[:idx]
			}
			if rssi, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return rssi
			}
		}
	}
	return models.RSSIUnknown
}
