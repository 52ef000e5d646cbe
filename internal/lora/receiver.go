package lora

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// Port 串口类字节流传输（物理驱动在系统范围之外）
// 契约仅为"交付字节，读取边界任意"；Close 必须能解除阻塞中的 Read
type Port interface {
	io.ReadWriteCloser
}

// MessageSink 解码消息的去向（由摄取队列实现）
// Put 在队列满时阻塞（背压），直到上下文取消
type MessageSink interface {
	Put(ctx context.Context, msg *models.DecodedMessage) error
}

// Receiver 无线链路接收器：唯一的队列生产者
type Receiver struct {
	port       Port
	decoder    *Decoder
	sink       MessageSink
	frequency  string
	staleAfter time.Duration
	logger     *zap.Logger

	// 统计回调（可选），帧被成功入队/丢弃时调用
	OnMessage func()
	OnDropped func()
}

// NewReceiver 创建接收器
func NewReceiver(port Port, sink MessageSink, frequency string, staleAfter time.Duration, logger *zap.Logger) *Receiver {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Second
	}
	return &Receiver{
		port:       port,
		decoder:    NewDecoder(),
		sink:       sink,
		frequency:  frequency,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Init 发送链路初始化命令（P2P 模式、频率、同步字、连续接收）
// 命令内容对本系统不透明，失败视为链路不可用
func (r *Receiver) Init() error {
	commands := []string{
		"AT+NWM=0",
		fmt.Sprintf("AT+P2P=%s:7:125:1:8:", r.frequency),
		"AT+SYNCWORD=34",
		"AT+PRECV=65533",
	}
	for _, cmd := range commands {
		if _, err := r.port.Write([]byte(cmd + "\r\n")); err != nil {
			return fmt.Errorf("failed to send init command %q: %w", cmd, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
	r.logger.Info("LoRa module initialized",
		zap.String("frequency", r.frequency),
	)
	return nil
}

// Run 接收循环：累积字节、按行切分、解码并入队
// 上下文取消时关闭端口以解除阻塞中的 Read，随后退出
func (r *Receiver) Run(ctx context.Context) error {
	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)

	// 读取协程：Read 阻塞在链路 I/O 上，由 Close 解除
	go func() {
		defer close(chunks)
		buf := make([]byte, 512)
		for {
			n, err := r.port.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	// 关停时关闭端口，解除读取协程的阻塞
	go func() {
		<-ctx.Done()
		r.port.Close()
	}()

	var buffer strings.Builder
	lastData := time.Now()
	staleTicker := time.NewTicker(time.Second)
	defer staleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("link read failed: %w", err)

		case <-staleTicker.C:
			// 超过 staleAfter 无新数据则丢弃残帧，防止损坏流导致缓冲无界增长
			if buffer.Len() > 0 && time.Since(lastData) > r.staleAfter {
				r.logger.Warn("Discarding stale partial frame",
					zap.Int("buffered_bytes", buffer.Len()),
				)
				buffer.Reset()
			}

		case chunk, ok := <-chunks:
			if !ok {
				continue
			}
			lastData = time.Now()
			buffer.Write(chunk)

			// 处理所有完整行
			pending := buffer.String()
			for {
				idx := strings.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimSpace(pending[:idx])
				pending = pending[idx+1:]

				if line == "" || !r.decoder.IsFrameLine(line) {
					continue
				}
				if err := r.handleFrameLine(ctx, line); err != nil {
					if ctx.Err() != nil {
						return nil
					}
				}
			}
			buffer.Reset()
			buffer.WriteString(pending)
		}
	}
}

// handleFrameLine 解码一行并入队；解码失败只丢弃该帧
func (r *Receiver) handleFrameLine(ctx context.Context, line string) error {
	msg, err := r.decoder.DecodeLine(line)
	if err != nil {
		r.logger.Error("Failed to decode frame",
			zap.String("line", truncate(line, 100)),
			zap.Error(err),
		)
		if r.OnDropped != nil {
			r.OnDropped()
		}
		return nil
	}

	// 队列满时阻塞（背压）：无线消息重新生成代价高，不允许静默丢弃
	if err := r.sink.Put(ctx, msg); err != nil {
		return err
	}

	if r.OnMessage != nil {
		r.OnMessage()
	}
	r.logger.Info("LoRa frame received",
		zap.Int("rssi", msg.RSSI),
		zap.Int("payload_keys", len(msg.Payload)),
	)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
