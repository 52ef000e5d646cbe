package lora

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

func frameLine(rssi, snr, jsonPayload string) string {
	return "+EVT:RXP2P,RSSI:" + rssi + ",SNR:" + snr + ":" + hex.EncodeToString([]byte(jsonPayload))
}

func TestDecodeLine_Success(t *testing.T) {
	d := NewDecoder()

	payload := `{"id":"TAG1","t":39.5,"hr":72}`
	msg, err := d.DecodeLine(frameLine("-42", "8", payload))

	require.NoError(t, err)
	assert.Equal(t, -42, msg.RSSI)
	assert.Equal(t, "TAG1", msg.Payload["id"])
	assert.Equal(t, 39.5, msg.Payload["t"])
	assert.Equal(t, float64(72), msg.Payload["hr"])
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestDecodeLine_RoundTripsArbitraryJSON(t *testing.T) {
	d := NewDecoder()

	payload := `{"type":"WATER_ALERT","device_id":"SPRK_02","timestamp":"2026-01-02T03:04:05Z","moisture_level":12.5,"nested":{"a":[1,2,3]}}`
	msg, err := d.DecodeLine(frameLine("-80", "4", payload))

	require.NoError(t, err)
	assert.Equal(t, "WATER_ALERT", msg.Payload["type"])
	assert.Equal(t, "SPRK_02", msg.Payload["device_id"])
	assert.Equal(t, 12.5, msg.Payload["moisture_level"])
	nested, ok := msg.Payload["nested"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, nested["a"], 3)
}

func TestDecodeLine_MalformedTooFewSegments(t *testing.T) {
	d := NewDecoder()

	_, err := d.DecodeLine("+EVT:RXP2P,RSSI")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestDecodeLine_EmptyPayload(t *testing.T) {
	d := NewDecoder()

	_, err := d.DecodeLine("+EVT:RXP2P,RSSI:-42,SNR:8:")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestDecodeLine_InvalidHex(t *testing.T) {
	d := NewDecoder()

	_, err := d.DecodeLine("+EVT:RXP2P,RSSI:-42,SNR:8:ZZZZ")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodableFrame))
}

func TestDecodeLine_TruncatedHex(t *testing.T) {
	d := NewDecoder()

	// 奇数长度的 hex 对应截断的帧
	full := hex.EncodeToString([]byte(`{"id":"TAG1","t":39.5,"hr":72}`))
	_, err := d.DecodeLine("+EVT:RXP2P,RSSI:-42,SNR:8:" + full[:len(full)-1])

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodableFrame))
}

func TestDecodeLine_InvalidJSON(t *testing.T) {
	d := NewDecoder()

	_, err := d.DecodeLine(frameLine("-42", "8", `{"id":"TAG1",`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodableFrame))
}

func TestDecodeLine_NonObjectJSON(t *testing.T) {
	d := NewDecoder()

	_, err := d.DecodeLine(frameLine("-42", "8", `[1,2,3]`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodableFrame))
}

func TestDecodeLine_MissingRSSIUsesSentinel(t *testing.T) {
	d := NewDecoder()

	payload := hex.EncodeToString([]byte(`{"id":"TAG1"}`))
	msg, err := d.DecodeLine("+EVT:RXP2P,SNR:8:x:" + payload)

	require.NoError(t, err)
	assert.Equal(t, models.RSSIUnknown, msg.RSSI)
}

func TestDecodeLine_UnparsableRSSIUsesSentinel(t *testing.T) {
	d := NewDecoder()

	msg, err := d.DecodeLine(frameLine("abc", "8", `{"id":"TAG1"}`))

	require.NoError(t, err)
	assert.Equal(t, models.RSSIUnknown, msg.RSSI)
}

func TestIsFrameLine(t *testing.T) {
	d := NewDecoder()

	assert.True(t, d.IsFrameLine("+EVT:RXP2P,RSSI:-42,SNR:8:AB"))
	assert.False(t, d.IsFrameLine("AT+PRECV=65533"))
	assert.False(t, d.IsFrameLine("OK"))
}
