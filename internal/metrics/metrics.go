// Package metrics 导出网关运行指标（Prometheus 格式）
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesReceived 无线链路成功解码的消息总数
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farm_lora_messages_total",
			Help: "Total number of messages decoded from the radio link",
		},
	)

	// FramesDropped 丢弃的帧总数（解码失败或无法分类）
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_frames_dropped_total",
			Help: "Total number of frames dropped, by reason",
		},
		[]string{"reason"},
	)

	// ReadingsStored 落库的读数总数
	ReadingsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_readings_total",
			Help: "Total number of readings stored, by kind",
		},
		[]string{"kind"},
	)

	// AlertsRaised 触发的报警总数
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_alerts_total",
			Help: "Total number of alerts raised, by severity",
		},
		[]string{"severity"},
	)

	// RecordsSynced 云端确认同步的记录总数
	RecordsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sync_records_total",
			Help: "Total number of records confirmed by the cloud, by table",
		},
		[]string{"table"},
	)

	// SyncBatchesFailed 重试耗尽后放弃的批次总数
	SyncBatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_sync_batches_failed_total",
			Help: "Total number of sync batches abandoned after retries",
		},
		[]string{"table"},
	)

	// QueueDepth 入站消息队列当前深度
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farm_ingest_queue_depth",
			Help: "Current depth of the inbound message queue",
		},
	)

	// PendingSync 各表待同步记录数
	PendingSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "farm_pending_sync_records",
			Help: "Number of records awaiting cloud sync, by table",
		},
		[]string{"table"},
	)
)
