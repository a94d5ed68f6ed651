package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

const (
	DefaultMaxAttempts  = 100
	DefaultPollInterval = 500 * time.Millisecond
)

// PollerConfig 轮询预算
type PollerConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// Outcome 一次轮询的结果
// Accepted=false 表示预算耗尽，Sample 为最后一次成功取到的样本（可能为 nil）
type Outcome struct {
	Accepted bool
	Sample   *models.SensorSample
	Attempts int
}

// Poller 按固定间隔读取样本直到谓词接受或预算耗尽
type Poller struct {
	source Source
	cfg    PollerConfig
	logger *zap.Logger
}

// NewPoller 创建轮询器
func NewPoller(source Source, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	return &Poller{source: source, cfg: cfg, logger: logger}
}

// Poll 第一次立即读取，之后每个间隔读取一次
// 读取失败与"未接受"同等处理；只有 ctx 取消才返回错误
func (p *Poller) Poll(ctx context.Context, accept Predicate) (Outcome, error) {
	var last *models.SensorSample
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Outcome{Sample: last, Attempts: attempt - 1}, ctx.Err()
			case <-ticker.C:
			}
		}

		sample, err := p.source.Latest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{Sample: last, Attempts: attempt}, ctx.Err()
			}
			p.logger.Debug("Sensor read failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if sample == nil {
			continue
		}
		last = sample
		if accept(sample) {
			return Outcome{Accepted: true, Sample: sample, Attempts: attempt}, nil
		}
	}

	p.logger.Warn("Sensor poll budget exhausted",
		zap.Int("attempts", p.cfg.MaxAttempts),
		zap.Duration("interval", p.cfg.Interval),
	)
	return Outcome{Sample: last, Attempts: p.cfg.MaxAttempts}, nil
}
