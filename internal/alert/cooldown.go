package alert

import (
	"sync"
	"time"
)

// CooldownLedger 冷却账本：报警键 -> 最近一次触发时刻
// 进程级状态，不持久化，重启即丢失（已接受的限制）。
// 环境评估与耳标评估可能运行在不同任务上，读-改-写需加锁。
type CooldownLedger struct {
	mu    sync.Mutex
	fired map[string]time.Time
	nowFn func() time.Time
}

// NewCooldownLedger 创建冷却账本
func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{
		fired: make(map[string]time.Time),
		nowFn: time.Now,
	}
}

// Allow 判断某报警键是否已过冷却期
// 无记录视为允许；记录存在时要求距上次触发超过 cooldownMinutes*60 秒
func (l *CooldownLedger) Allow(alertKey string, cooldownMinutes int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.fired[alertKey]
	if !ok {
		return true
	}
	return l.nowFn().Sub(last) > time.Duration(cooldownMinutes)*time.Minute
}

// Record 记录报警键的触发时刻
// 通知失败不得跳过记录，否则会造成立即重复报警
func (l *CooldownLedger) Record(alertKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired[alertKey] = l.nowFn()
}
