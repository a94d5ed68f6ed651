package speech

import (
	"context"
	"fmt"
	"strings"

	"wisefido-intake/internal/models"
)

// Listener 单次语音识别；重试策略由调用方决定
type Listener struct {
	recognizer Recognizer
}

// NewListener recognizer 可以为 nil
func NewListener(recognizer Recognizer) *Listener {
	return &Listener{recognizer: recognizer}
}

// Listen 返回去掉首尾空白的识别文本
func (l *Listener) Listen(ctx context.Context, lang models.Language) (string, error) {
	if l.recognizer == nil {
		return "", ErrNoRecognizer
	}
	text, err := l.recognizer.Recognize(ctx, lang.Locale())
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
