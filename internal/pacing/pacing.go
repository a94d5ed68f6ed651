// Package pacing 提供问诊步骤之间可取消的停顿
package pacing

import (
	"context"
	"time"
)

// Wait 等待 d 或直到 ctx 结束；d 不为正时立即返回（ctx 已取消则返回其错误）
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
