// Package terminal 通过 websocket 连接问诊流程与 kiosk 页面
//
// 服务端发送请求（speak、listen、snapshot、capture_photo、popup）和通知（display、reset），
// 页面用同一 id 的消息回复请求
package terminal

import "wisefido-intake/internal/speech"

// 服务端 → 页面
const (
	TypeSpeak        = "speak"
	TypeListen       = "listen"
	TypeSnapshot     = "snapshot"
	TypeCapturePhoto = "capture_photo"
	TypePopup        = "popup"
	TypeVoices       = "voices"
	TypeDisplay      = "display"
	TypeReset        = "reset"
)

// 页面 → 服务端
const (
	TypeDone       = "done"
	TypeTranscript = "transcript"
	TypeFrame      = "frame"
	TypeError      = "error"
	TypeLang       = "lang"
)

// errorNoRecognizer 页面不支持语音识别时返回的错误码
const errorNoRecognizer = "no-recognizer"

// Message 双向通用消息
type Message struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Text        string         `json:"text,omitempty"`
	Lang        string         `json:"lang,omitempty"`
	Voice       string         `json:"voice,omitempty"`
	Element     string         `json:"element,omitempty"`
	Title       string         `json:"title,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
	Kind        string         `json:"kind,omitempty"`
	Data        string         `json:"data,omitempty"`
	Voices      []speech.Voice `json:"voices,omitempty"`
	Error       string         `json:"error,omitempty"`
}
