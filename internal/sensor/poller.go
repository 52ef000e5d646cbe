package sensor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

// ReadingStore 环境读数存储
type ReadingStore interface {
	InsertEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) (int64, error)
}

// ThresholdChecker 环境阈值检查，返回本轮触发的报警
type ThresholdChecker interface {
	CheckEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) []models.Alert
}

// SnapshotWriter 实时快照更新（可为 nil）
type SnapshotWriter interface {
	SetEnvironmental(ctx context.Context, reading *models.EnvironmentalReading) error
}

// Poller 周期采集环境传感器并触发阈值检查
// 读数落库失败时跳过本周期阈值检查，任何失败都不中断采集循环
type Poller struct {
	source       Source
	store        ReadingStore
	checker      ThresholdChecker
	snapshot     SnapshotWriter
	readInterval time.Duration
	camInterval  time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	lastImage string

	// OnReading 每次成功落库后回调（指标用），可为 nil
	OnReading func()
}

// NewPoller 创建采集器
func NewPoller(source Source, store ReadingStore, checker ThresholdChecker, snapshot SnapshotWriter,
	readInterval, camInterval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		source:       source,
		store:        store,
		checker:      checker,
		snapshot:     snapshot,
		readInterval: readInterval,
		camInterval:  camInterval,
		logger:       logger,
	}
}

// Run 启动采集循环与抓拍循环，阻塞直到 ctx 取消
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.cameraLoop(ctx)
	}()

	wg.Wait()
}

func (p *Poller) readLoop(ctx context.Context) {
	ticker := time.NewTicker(p.readInterval)
	defer ticker.Stop()

	// 启动即采一轮，不等首个周期
	p.collectOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce(ctx)
		}
	}
}

func (p *Poller) cameraLoop(ctx context.Context) {
	ticker := time.NewTicker(p.camInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, err := p.source.CaptureImage()
			if err != nil {
				p.logger.Warn("Camera capture failed", zap.Error(err))
				continue
			}
			p.mu.Lock()
			p.lastImage = path
			p.mu.Unlock()
			p.logger.Debug("Camera image captured", zap.String("path", path))
		}
	}
}

// collectOnce 采一轮：读传感器、附加最近抓拍、落库、更新快照、阈值检查
func (p *Poller) collectOnce(ctx context.Context) {
	fields := p.source.ReadAll()

	reading := models.NewEnvironmentalReading(fields)
	reading.Camera = p.takeLastImage()

	if _, err := p.store.InsertEnvironmental(ctx, reading); err != nil {
		p.logger.Error("Failed to store environmental reading", zap.Error(err))
		return
	}
	if p.OnReading != nil {
		p.OnReading()
	}

	if p.snapshot != nil {
		if err := p.snapshot.SetEnvironmental(ctx, reading); err != nil {
			p.logger.Warn("Failed to update realtime snapshot", zap.Error(err))
		}
	}

	if alerts := p.checker.CheckEnvironmental(ctx, reading); len(alerts) > 0 {
		p.logger.Info("Environmental thresholds violated", zap.Int("alerts", len(alerts)))
	}
}

// takeLastImage 取走最近一次抓拍路径，同一张图只附加到一条读数
func (p *Poller) takeLastImage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	path := p.lastImage
	p.lastImage = ""
	return path
}
