package models

// QuestionType 问题类型；空值表示语音问答
type QuestionType string

const (
	QuestionVoice  QuestionType = ""
	QuestionQRScan QuestionType = "qr_scan"
)

// Question 不可变的问题定义
type Question struct {
	Prompt string       `yaml:"prompt" json:"prompt"`
	Field  string       `yaml:"field" json:"field"`
	Type   QuestionType `yaml:"type" json:"type,omitempty"`
}

// IsQRScan 是否由扫码器处理
func (q Question) IsQRScan() bool {
	return q.Type == QuestionQRScan
}
