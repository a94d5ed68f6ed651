package speech

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

const DefaultChunkTimeout = 30 * time.Second

// Synthesizer 分句播报，保证 Speak 总会返回
type Synthesizer struct {
	engine       Engine
	chunkTimeout time.Duration
	logger       *zap.Logger
}

// NewSynthesizer engine 可以为 nil（无语音输出的终端）
func NewSynthesizer(engine Engine, chunkTimeout time.Duration, logger *zap.Logger) *Synthesizer {
	if chunkTimeout <= 0 {
		chunkTimeout = DefaultChunkTimeout
	}
	return &Synthesizer{engine: engine, chunkTimeout: chunkTimeout, logger: logger}
}

// Speak 按顺序逐句播报，最后一句结束后返回
// 引擎缺失、单句出错或超时都视为该句已结束
func (s *Synthesizer) Speak(ctx context.Context, text string, lang models.Language) {
	chunks := SplitSentences(text)
	if s.engine == nil || len(chunks) == 0 {
		return
	}

	locale := lang.Locale()
	voice := s.pickVoice(ctx, locale)

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		chunkCtx, cancel := context.WithTimeout(ctx, s.chunkTimeout)
		err := s.engine.SpeakChunk(chunkCtx, chunk, voice, locale)
		cancel()
		if err != nil {
			s.logger.Warn("Speech chunk did not complete",
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.String("locale", locale),
				zap.Error(err),
			)
		}
	}
}

func (s *Synthesizer) pickVoice(ctx context.Context, locale string) Voice {
	voiceCtx, cancel := context.WithTimeout(ctx, s.chunkTimeout)
	defer cancel()

	voices, err := s.engine.Voices(voiceCtx)
	if err != nil {
		s.logger.Debug("Voice list unavailable, using default voice", zap.Error(err))
		return Voice{}
	}
	v, ok := PickVoice(voices, locale)
	if !ok {
		s.logger.Debug("No voice for locale, using default voice", zap.String("locale", locale))
	}
	return v
}
