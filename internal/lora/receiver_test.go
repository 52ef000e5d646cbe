package lora

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// fakePort 内存串口：Read 阻塞在通道上，Close 解除阻塞
type fakePort struct {
	mu        sync.Mutex
	reads     chan []byte
	writes    []string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk, ok := <-p.reads:
		if !ok {
			return 0, io.EOF
		}
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// collectSink 收集入队消息
type collectSink struct {
	mu   sync.Mutex
	msgs []*models.DecodedMessage
}

func (s *collectSink) Put(_ context.Context, msg *models.DecodedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestReceiver_Init_SendsCommandSequence(t *testing.T) {
	port := newFakePort()
	r := NewReceiver(port, &collectSink{}, "866000000", time.Second, zap.NewNop())

	require.NoError(t, r.Init())

	require.Len(t, port.writes, 4)
	assert.Equal(t, "AT+NWM=0\r\n", port.writes[0])
	assert.Equal(t, "AT+P2P=866000000:7:125:1:8:\r\n", port.writes[1])
	assert.Equal(t, "AT+SYNCWORD=34\r\n", port.writes[2])
	assert.Equal(t, "AT+PRECV=65533\r\n", port.writes[3])
}

func TestReceiver_Run_DecodesFramesToSink(t *testing.T) {
	port := newFakePort()
	sink := &collectSink{}
	r := NewReceiver(port, sink, "866000000", time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		assert.NoError(t, r.Run(ctx))
		close(done)
	}()

	line := frameLine("-42", "8", `{"id":"TAG1","t":39.0,"hr":72}`)
	port.reads <- []byte(line + "\n")

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, -42, sink.msgs[0].RSSI)
	assert.Equal(t, "TAG1", sink.msgs[0].Payload["id"])

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receiver did not stop after cancel")
	}
}

func TestReceiver_Run_HandlesSplitFrames(t *testing.T) {
	port := newFakePort()
	sink := &collectSink{}
	r := NewReceiver(port, sink, "866000000", time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// 一帧分两次到达
	line := frameLine("-60", "6", `{"type":"RFID_SCAN","device_id":"GATE_01","timestamp":"2026-08-26T10:00:00Z"}`)
	half := len(line) / 2
	port.reads <- []byte(line[:half])
	port.reads <- []byte(line[half:] + "\n")

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "GATE_01", sink.msgs[0].Payload["device_id"])
}

func TestReceiver_Run_DropsUndecodableFrame(t *testing.T) {
	port := newFakePort()
	sink := &collectSink{}
	r := NewReceiver(port, sink, "866000000", time.Second, zap.NewNop())

	var dropped int
	var mu sync.Mutex
	r.OnDropped = func() {
		mu.Lock()
		dropped++
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// 坏 hex 帧后跟好帧：坏帧丢弃，好帧正常入队
	port.reads <- []byte("+EVT:RXP2P,RSSI:-42,SNR:8:ZZZZ\n")
	port.reads <- []byte(frameLine("-42", "8", `{"id":"TAG2","t":38.0,"hr":70}`) + "\n")

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, dropped)
	mu.Unlock()
	assert.Equal(t, "TAG2", sink.msgs[0].Payload["id"])
}

func TestReceiver_Run_IgnoresNonFrameLines(t *testing.T) {
	port := newFakePort()
	sink := &collectSink{}
	r := NewReceiver(port, sink, "866000000", time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	port.reads <- []byte("OK\nAT+PRECV=65533\n")
	port.reads <- []byte(frameLine("-42", "8", `{"id":"TAG3","t":38.0,"hr":70}`) + "\n")

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "TAG3", sink.msgs[0].Payload["id"])
}
