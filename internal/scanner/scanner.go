// Package scanner 从 kiosk 摄像头读取患者二维码
package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrScanTimeout   = errors.New("qr scan timed out")
	ErrScanCancelled = errors.New("qr scan cancelled")
)

const (
	DefaultMaxAttempts     = 200
	DefaultInterval        = 300 * time.Millisecond
	DefaultSnapshotTimeout = 2 * time.Second
)

// FrameSource 返回当前摄像头画面（JPEG / PNG 编码）
type FrameSource interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Decoder 从一帧图像中解码二维码文本
type Decoder interface {
	Decode(frame []byte) (string, error)
}

// Config 扫描预算
type Config struct {
	MaxAttempts     int
	Interval        time.Duration
	SnapshotTimeout time.Duration
}

// Scanner 周期性抓帧解码，直到解出内容、预算耗尽或被取消
type Scanner struct {
	frames  FrameSource
	decoder Decoder
	cfg     Config
	active  atomic.Bool
	logger  *zap.Logger
}

// NewScanner 创建扫描器
func NewScanner(frames FrameSource, decoder Decoder, cfg Config, logger *zap.Logger) *Scanner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = DefaultSnapshotTimeout
	}
	return &Scanner{frames: frames, decoder: decoder, cfg: cfg, logger: logger}
}

// Cancel 清除 active 标志，之后的 tick 不再抓帧
func (s *Scanner) Cancel() {
	s.active.Store(false)
}

// Scan 返回解码出的原始内容；单次抓帧或解码失败不会中止扫描
// 第一次尝试立即进行，之后每个间隔尝试一次
func (s *Scanner) Scan(ctx context.Context) (string, error) {
	s.active.Store(true)
	defer s.active.Store(false)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}
		if !s.active.Load() {
			return "", ErrScanCancelled
		}

		text, err := s.attempt(ctx)
		if err != nil {
			continue
		}
		if !s.active.Load() {
			return "", ErrScanCancelled
		}
		s.logger.Info("QR code decoded", zap.Int("attempt", attempt), zap.Int("length", len(text)))
		return text, nil
	}

	s.logger.Warn("QR scan budget exhausted", zap.Int("attempts", s.cfg.MaxAttempts))
	return "", ErrScanTimeout
}

func (s *Scanner) attempt(ctx context.Context) (string, error) {
	snapCtx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	defer cancel()

	frame, err := s.frames.Snapshot(snapCtx)
	if err != nil {
		return "", err
	}
	if len(frame) == 0 {
		return "", errors.New("empty frame")
	}
	text, err := s.decoder.Decode(frame)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty payload")
	}
	return text, nil
}
