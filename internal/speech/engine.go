// Package speech 提供语音播报与语音识别功能
//
// 合成与识别在 kiosk 页面执行；本包负责分句、发音人选择和播报完成保证
package speech

import (
	"context"
	"errors"
)

var (
	// ErrNoRecognizer 终端不具备语音识别能力
	ErrNoRecognizer = errors.New("speech recognizer unavailable")
	// ErrEmptyTranscript 识别结果为空
	ErrEmptyTranscript = errors.New("empty transcript")
)

// Voice 终端上可用的一个发音人
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Engine 文字转语音引擎
// SpeakChunk 在该段播放结束后返回；Voice 为零值表示使用引擎默认发音人
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	SpeakChunk(ctx context.Context, text string, voice Voice, locale string) error
}

// Recognizer 语音识别引擎，一次调用只做一次识别
type Recognizer interface {
	Recognize(ctx context.Context, locale string) (string, error)
}
