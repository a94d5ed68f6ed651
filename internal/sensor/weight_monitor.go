package sensor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

// ErrMonitorStopped Stop 被调用后 Wait 返回
var ErrMonitorStopped = errors.New("weight monitor stopped")

const (
	DefaultWeightInterval  = 2 * time.Second
	DefaultWeightThreshold = 10.0
)

// WeightMonitor 空闲阶段监测体重秤，检测到有人站上即结束
type WeightMonitor struct {
	source    Source
	interval  time.Duration
	threshold float64
	active    atomic.Bool
	logger    *zap.Logger
}

// NewWeightMonitor 创建体重监测器
func NewWeightMonitor(source Source, interval time.Duration, threshold float64, logger *zap.Logger) *WeightMonitor {
	if interval <= 0 {
		interval = DefaultWeightInterval
	}
	if threshold <= 0 {
		threshold = DefaultWeightThreshold
	}
	return &WeightMonitor{source: source, interval: interval, threshold: threshold, logger: logger}
}

// Stop 清除 active 标志，挂起的 tick 变为 no-op
func (m *WeightMonitor) Stop() {
	m.active.Store(false)
}

// Wait 每个间隔读取一次体重，onTick 收到每个成功读取的样本（用于刷新体重徽标）
// 第一次超过阈值时清除 active 并返回该样本
func (m *WeightMonitor) Wait(ctx context.Context, onTick func(*models.SensorSample)) (*models.SensorSample, error) {
	m.active.Store(true)
	defer m.active.Store(false)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	accept := WeightAbove(m.threshold)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if !m.active.Load() {
			return nil, ErrMonitorStopped
		}

		sample, err := m.source.Latest(ctx)
		if err != nil {
			m.logger.Debug("Weight read failed", zap.Error(err))
			continue
		}
		if !m.active.Load() {
			return nil, ErrMonitorStopped
		}
		if sample == nil {
			continue
		}
		if onTick != nil {
			onTick(sample)
		}
		if accept(sample) {
			m.active.Store(false)
			m.logger.Info("Patient detected on weight sensor",
				zap.Float64("weight_kg", models.ValueOr(sample.Weight, 0)),
			)
			return sample, nil
		}
	}
}
