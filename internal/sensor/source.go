// Package sensor 负责本机环境传感器与摄像头的周期采集
package sensor

import (
	"math/rand"
	"sync"
	"time"
)

// Source 环境传感器与摄像头的采集接口
// ReadAll 返回参数名 -> 值；读取失败的传感器以 nil 值占位
type Source interface {
	ReadAll() map[string]*float64
	CaptureImage() (string, error)
}

// SimulatedSource 无硬件环境下的模拟数据源
// 围绕典型棚舍数值做小幅随机游走，供开发与集成测试使用
type SimulatedSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64
}

// NewSimulatedSource 创建模拟数据源
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		last: map[string]float64{
			"temperature": 24.0,
			"humidity":    60.0,
			"co2":         700.0,
			"nh3":         8.0,
			"pm25":        35.0,
			"co":          3.0,
		},
	}
}

// ReadAll 返回一组模拟读数
func (s *SimulatedSource) ReadAll() map[string]*float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := map[string]float64{
		"temperature": 0.5,
		"humidity":    2.0,
		"co2":         30.0,
		"nh3":         1.0,
		"pm25":        5.0,
		"co":          0.5,
	}

	out := make(map[string]*float64, len(s.last))
	for param, step := range steps {
		v := s.last[param] + (s.rng.Float64()*2-1)*step
		if v < 0 {
			v = 0
		}
		s.last[param] = v
		value := v
		out[param] = &value
	}
	return out
}

// CaptureImage 模拟抓拍，返回伪造的文件路径
func (s *SimulatedSource) CaptureImage() (string, error) {
	return time.Now().UTC().Format("captures/20060102_150405.jpg"), nil
}
