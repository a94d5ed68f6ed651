package models

// Phase 问诊状态机阶段
type Phase string

const (
	PhaseIdle        Phase = "idle" // 等待体重触发
	PhaseDialogue    Phase = "dialogue"
	PhaseHeartbeat   Phase = "heartbeat"
	PhaseTemperature Phase = "temperature"
	PhasePhoto       Phase = "photo"
	PhaseSubmit      Phase = "submit"
	PhaseComplete    Phase = "complete"
)

// Language kiosk 支持的语言
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage 未知值一律回退为英文
func ParseLanguage(s string) Language {
	if Language(s) == LanguageHindi {
		return LanguageHindi
	}
	return LanguageEnglish
}

// Locale 返回语音引擎使用的 BCP-47 区域码
func (l Language) Locale() string {
	if l == LanguageHindi {
		return "hi-IN"
	}
	return "en-US"
}

// SensorKind 传感器弹窗类型
type SensorKind string

const (
	SensorHeartbeat   SensorKind = "heartbeat"
	SensorTemperature SensorKind = "temperature"
)
