// Package events 将问诊生命周期事件发布到 Redis stream
package events

import (
	"context"

	"go.uber.org/zap"

	rediscommon "wisefido-intake/internal/common/redis"
	"wisefido-intake/internal/models"
)

const (
	DefaultStream = "intake:events:stream"
	DefaultMaxLen = 10000
)

// StreamPublisher 把 InterviewEvent 以 JSON 写入 Redis Streams
type StreamPublisher struct {
	client rediscommon.StreamAppender
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher 创建事件发布器
func NewStreamPublisher(client rediscommon.StreamAppender, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

// Publish 发布单个事件
func (p *StreamPublisher) Publish(ctx context.Context, event models.InterviewEvent) error {
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, event)
	if err != nil {
		return err
	}
	p.logger.Debug("Interview event published",
		zap.String("stream", p.stream),
		zap.String("stream_id", id),
		zap.String("interview_id", event.InterviewID),
		zap.String("event", event.Event),
	)
	return nil
}

// Nop Redis 未启用时使用
type Nop struct{}

func (Nop) Publish(context.Context, models.InterviewEvent) error { return nil }
