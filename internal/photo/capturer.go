// Package photo 在问诊结束前拍摄患者照片
package photo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/pacing"
)

const (
	DefaultGracePeriod     = 5 * time.Second
	DefaultExternalTimeout = 10 * time.Second
)

// InPageCamera 终端页面上的摄像头；拍照结果通过 /upload_photo 写入会话存储
type InPageCamera interface {
	Available() bool
	TriggerCapture(ctx context.Context) error
}

// ExternalCamera 外部拍照服务
type ExternalCamera interface {
	TakePicture(ctx context.Context) (string, error)
}

// FieldStore 会话字段读写（session.Store 实现）
type FieldStore interface {
	Field(ctx context.Context, field string) (string, error)
	SaveField(ctx context.Context, field, value string) error
}

// Config 拍照时间预算
type Config struct {
	GracePeriod     time.Duration
	ExternalTimeout time.Duration
}

// Capturer 页面拍照 → 外部服务 → 占位文件名，总能返回一个引用
type Capturer struct {
	camera   InPageCamera
	external ExternalCamera
	store    FieldStore
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewCapturer camera 与 external 都可以为 nil
func NewCapturer(camera InPageCamera, external ExternalCamera, store FieldStore, cfg Config, logger *zap.Logger) *Capturer {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = DefaultExternalTimeout
	}
	return &Capturer{
		camera:   camera,
		external: external,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// PlaceholderName 拍照全部失败时使用的文件名
func PlaceholderName(at time.Time) string {
	return fmt.Sprintf("patient_%d.jpg", at.UnixMilli())
}

// Capture 返回照片引用并写入会话存储
// 最长耗时为宽限期加外部服务超时
func (c *Capturer) Capture(ctx context.Context) string {
	ref := c.inPage(ctx)
	if ref == "" {
		ref = c.externalCapture(ctx)
	}
	if ref == "" {
		ref = PlaceholderName(c.now())
		c.logger.Warn("Photo capture failed, using placeholder", zap.String("photo", ref))
	}

	if err := c.store.SaveField(ctx, models.FieldPhoto, ref); err != nil {
		c.logger.Warn("Failed to persist photo reference", zap.Error(err))
	}
	return ref
}

func (c *Capturer) inPage(ctx context.Context) string {
	if c.camera == nil || !c.camera.Available() {
		return ""
	}
	if err := c.camera.TriggerCapture(ctx); err != nil {
		c.logger.Warn("In-page capture failed", zap.Error(err))
		return ""
	}
	if err := pacing.Wait(ctx, c.cfg.GracePeriod); err != nil {
		return ""
	}
	ref, err := c.store.Field(ctx, models.FieldPhoto)
	if err != nil || ref == "" {
		c.logger.Info("In-page photo not uploaded within grace period",
			zap.Duration("grace", c.cfg.GracePeriod),
		)
		return ""
	}
	return ref
}

func (c *Capturer) externalCapture(ctx context.Context) string {
	if c.external == nil || ctx.Err() != nil {
		return ""
	}
	extCtx, cancel := context.WithTimeout(ctx, c.cfg.ExternalTimeout)
	defer cancel()

	ref, err := c.external.TakePicture(extCtx)
	if err != nil {
		c.logger.Warn("External capture failed", zap.Error(err))
		return ""
	}
	return ref
}
