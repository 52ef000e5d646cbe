// Package ingest 实现无线监听与处理环节之间的有界摄取队列
//
// 队列是唯一的跨任务通道：单生产者（链路接收器）、单消费者（处理循环）。
// 队列满时 Put 阻塞（对监听端施加背压），不做丢弃；Get 带超时，
// 保证消费端能在有界延迟内观察到关停信号。FIFO 顺序端到端保持。
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// DefaultQueueSize 默认队列容量
const DefaultQueueSize = 1000

// ErrTimeout Get 在超时内未取到消息
var ErrTimeout = errors.New("queue get timeout")

// Queue 有界 FIFO 消息队列
type Queue struct {
	ch chan *models.DecodedMessage
}

// NewQueue 创建队列，size <= 0 时使用默认容量
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch: make(chan *models.DecodedMessage, size),
	}
}

// Put 入队；队列满时阻塞直到有空位或上下文取消
func (q *Queue) Put(ctx context.Context, msg *models.DecodedMessage) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get 出队；超时返回 ErrTimeout，上下文取消返回 ctx.Err()
func (q *Queue) Get(ctx context.Context, timeout time.Duration) (*models.DecodedMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-q.ch:
		return msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len 当前排队消息数（仅用于统计）
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap 队列容量
func (q *Queue) Cap() int {
	return cap(q.ch)
}
