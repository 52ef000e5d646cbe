package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/alert"
	"github.com/Praneyaarora/Murgamon-project/internal/cache"
	"github.com/Praneyaarora/Murgamon-project/internal/cloudsync"
	"github.com/Praneyaarora/Murgamon-project/internal/config"
	"github.com/Praneyaarora/Murgamon-project/internal/ingest"
	"github.com/Praneyaarora/Murgamon-project/internal/lora"
	"github.com/Praneyaarora/Murgamon-project/internal/metrics"
	"github.com/Praneyaarora/Murgamon-project/internal/notify"
	"github.com/Praneyaarora/Murgamon-project/internal/repository"
	"github.com/Praneyaarora/Murgamon-project/internal/sensor"
)

// Gateway 农场 BOM 网关服务
// 持有全部子系统并负责其生命周期：无线接收、消息处理、本机传感器采集、
// 云同步、统计上报与指标服务
type Gateway struct {
	cfg        *config.Config
	logger     *zap.Logger
	instanceID string

	db          *sql.DB
	redisClient *redis.Client

	queue      *ingest.Queue
	receiver   *lora.Receiver
	processor  *Processor
	poller     *sensor.Poller
	syncMgr    *cloudsync.Manager
	alertsRepo *repository.AlertsRepository
	syncRepo   *repository.SyncRepository
	metricsSrv *metrics.Server
}

// NewGateway 创建网关服务并完成全部装配
// port 为 nil 时不启动无线监听（仅本机传感器模式）；source 为 nil 时
// 使用模拟数据源
func NewGateway(cfg *config.Config, port lora.Port, source sensor.Source,
	instanceID string, logger *zap.Logger) (*Gateway, error) {
	db, err := repository.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := repository.InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var snapshot *cache.SnapshotCache
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// 快照只是看板加速层，Redis 不可用时降级运行
		logger.Warn("Redis unavailable, realtime snapshots disabled", zap.Error(err))
	} else {
		snapshot = cache.NewSnapshotCache(redisClient, 5*time.Minute, logger)
	}

	readingsRepo := repository.NewReadingsRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)
	syncRepo := repository.NewSyncRepository(db, logger)

	emailSender := notify.NewEmailSender(notify.EmailConfig{
		Enabled:    cfg.Notify.Email.Enabled,
		SMTPServer: cfg.Notify.Email.SMTPServer,
		SMTPPort:   cfg.Notify.Email.SMTPPort,
		Username:   cfg.Notify.Email.Username,
		Password:   cfg.Notify.Email.Password,
		Recipients: cfg.Notify.Email.Recipients,
	})
	webhookSender := notify.NewWebhookSender(cfg.Notify.Webhook.URL, cfg.FarmID, cfg.Notify.Webhook.Enabled)
	dispatcher := notify.NewDispatcher(emailSender, webhookSender, logger)

	rules := alert.ResolveRules(cfg.AlertRules)
	engine := alert.NewEngine(rules, alert.NewCooldownLedger(), alertsRepo, dispatcher, logger)
	engine.OnAlert = func(severity string) {
		metrics.AlertsRaised.WithLabelValues(severity).Inc()
	}

	queue := ingest.NewQueue(cfg.Ingest.QueueSize)

	var receiver *lora.Receiver
	if port != nil {
		receiver = lora.NewReceiver(port, queue, cfg.LoRa.Frequency,
			time.Duration(cfg.LoRa.StaleBufferSeconds)*time.Second, logger)
		receiver.OnMessage = func() { metrics.MessagesReceived.Inc() }
		receiver.OnDropped = func() { metrics.FramesDropped.WithLabelValues("undecodable").Inc() }
	}

	processor := NewProcessor(queue, readingsRepo, engine, snapshotOrNil(snapshot),
		time.Duration(cfg.Ingest.GetTimeout)*time.Second, logger)
	processor.OnStored = func(kind string) {
		metrics.ReadingsStored.WithLabelValues(kind).Inc()
	}
	processor.OnDropped = func(reason string) {
		metrics.FramesDropped.WithLabelValues(reason).Inc()
	}

	if source == nil {
		source = sensor.NewSimulatedSource()
	}
	poller := sensor.NewPoller(source, readingsRepo, engine, envSnapshotOrNil(snapshot),
		time.Duration(cfg.Sensors.ReadInterval)*time.Second,
		time.Duration(cfg.Sensors.CameraInterval)*time.Second, logger)
	poller.OnReading = func() {
		metrics.ReadingsStored.WithLabelValues("environmental").Inc()
	}

	var syncMgr *cloudsync.Manager
	if cfg.Cloud.Enabled && cfg.Cloud.APIURL != "" {
		syncMgr = cloudsync.NewManager(cloudsync.Options{
			FarmID:     cfg.FarmID,
			APIURL:     cfg.Cloud.APIURL,
			APIKey:     cfg.Cloud.APIKey,
			Interval:   time.Duration(cfg.Cloud.SyncInterval) * time.Second,
			BatchSize:  cfg.Cloud.BatchSize,
			MaxRetries: cfg.Cloud.MaxRetries,
		}, syncRepo, logger)
		syncMgr.OnBatchSynced = func(table string, count int) {
			metrics.RecordsSynced.WithLabelValues(table).Add(float64(count))
		}
		syncMgr.OnBatchFailed = func(table string) {
			metrics.SyncBatchesFailed.WithLabelValues(table).Inc()
		}
	}

	return &Gateway{
		cfg:         cfg,
		logger:      logger,
		instanceID:  instanceID,
		db:          db,
		redisClient: redisClient,
		queue:       queue,
		receiver:    receiver,
		processor:   processor,
		poller:      poller,
		syncMgr:     syncMgr,
		alertsRepo:  alertsRepo,
		syncRepo:    syncRepo,
		metricsSrv:  metrics.NewServer(cfg.Metrics.Addr, instanceID, logger),
	}, nil
}

// Start 启动全部子系统，阻塞直到 ctx 取消
func (g *Gateway) Start(ctx context.Context) error {
	g.logger.Info("Starting farm gateway",
		zap.String("farm_id", g.cfg.FarmID),
		zap.String("instance_id", g.instanceID),
	)

	g.metricsSrv.Start()

	var wg sync.WaitGroup

	if g.receiver != nil {
		if err := g.receiver.Init(); err != nil {
			return fmt.Errorf("failed to init radio module: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.receiver.Run(ctx); err != nil {
				g.logger.Error("Radio receiver stopped", zap.Error(err))
			}
		}()
	} else {
		g.logger.Warn("No radio device configured, running in sensor-only mode")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		g.processor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		g.poller.Run(ctx)
	}()

	if g.syncMgr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.syncMgr.Run(ctx)
		}()
	} else {
		g.logger.Info("Cloud sync disabled")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		g.statsLoop(ctx)
	}()

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.metricsSrv.Shutdown(shutdownCtx); err != nil {
		g.logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	return nil
}

// Stop 释放外部资源
func (g *Gateway) Stop() {
	if g.db != nil {
		g.db.Close()
	}
	if g.redisClient != nil {
		g.redisClient.Close()
	}
}

// statsLoop 周期性输出运行统计并刷新仪表
func (g *Gateway) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(g.cfg.Stats.Interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.reportStats(ctx)
		}
	}
}

func (g *Gateway) reportStats(ctx context.Context) {
	metrics.QueueDepth.Set(float64(g.queue.Len()))

	fields := []zap.Field{
		zap.Int("queue_depth", g.queue.Len()),
		zap.Int("queue_capacity", g.queue.Cap()),
	}

	if stats, err := g.alertsRepo.GetAlertStats(ctx); err != nil {
		g.logger.Warn("Failed to collect alert stats", zap.Error(err))
	} else {
		fields = append(fields,
			zap.Any("alerts_24h", stats.BySeverity24h),
			zap.Int("unacknowledged_alerts", stats.Unacknowledged),
		)
	}

	if pending, err := g.syncRepo.PendingSyncCounts(ctx); err != nil {
		g.logger.Warn("Failed to collect pending sync counts", zap.Error(err))
	} else {
		for table, count := range pending {
			metrics.PendingSync.WithLabelValues(table).Set(float64(count))
		}
		fields = append(fields, zap.Any("pending_sync", pending))
	}

	if g.syncMgr != nil {
		fields = append(fields, zap.Any("sync_stats", g.syncMgr.Stats()))
	}

	g.logger.Info("Gateway stats", fields...)
}

// snapshotOrNil 将具体快照类型降级为接口；nil 具体值必须转成 nil 接口
func snapshotOrNil(s *cache.SnapshotCache) WearableSnapshot {
	if s == nil {
		return nil
	}
	return s
}

func envSnapshotOrNil(s *cache.SnapshotCache) sensor.SnapshotWriter {
	if s == nil {
		return nil
	}
	return s
}
