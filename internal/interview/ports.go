package interview

import (
	"context"

	"wisefido-intake/internal/models"
	"wisefido-intake/internal/sensor"
)

// Speaker 语音播报，返回即表示播报结束
type Speaker interface {
	Speak(ctx context.Context, text string, lang models.Language)
}

// Listener 单次语音识别
type Listener interface {
	Listen(ctx context.Context, lang models.Language) (string, error)
}

// CodeScanner 二维码扫描
type CodeScanner interface {
	Scan(ctx context.Context) (string, error)
	Cancel()
}

// IdentityVerifier 扫码内容核验
type IdentityVerifier interface {
	VerifyCode(ctx context.Context, payload string) (*models.PatientIdentity, error)
}

// VitalsPoller 传感器轮询
type VitalsPoller interface {
	Poll(ctx context.Context, accept sensor.Predicate) (sensor.Outcome, error)
}

// PresenceDetector 空闲阶段检测患者站上体重秤
type PresenceDetector interface {
	Wait(ctx context.Context, onTick func(*models.SensorSample)) (*models.SensorSample, error)
	Stop()
}

// PhotoCapturer 拍照，总会返回一个引用
type PhotoCapturer interface {
	Capture(ctx context.Context) string
}

// Submitter 最终提交
type Submitter interface {
	Submit(ctx context.Context, payload *models.SubmissionPayload) error
}

// Display 页面元素渲染
type Display interface {
	Show(element, text string)
	Reset()
}

// PopupNotifier 可选：传感器引导弹窗，返回后开始读取
type PopupNotifier interface {
	ShowSensorPopup(ctx context.Context, title, instruction string, kind models.SensorKind) error
}

// SessionStore 会话存储
type SessionStore interface {
	Language(ctx context.Context) models.Language
	SaveField(ctx context.Context, field, value string) error
	Restore(ctx context.Context) *models.SessionRecord
	Clear(ctx context.Context) error
}

// EventPublisher 可选：状态机事件输出
type EventPublisher interface {
	Publish(ctx context.Context, event models.InterviewEvent) error
}

// SubmissionAuditor 可选：提交审计
type SubmissionAuditor interface {
	Save(ctx context.Context, rec *models.SubmissionRecord) error
}

// Deps 控制器依赖；Popup / Events / Auditor / Presence 可以为 nil
type Deps struct {
	DeviceID  string
	Questions QuestionSet

	Speaker   Speaker
	Listener  Listener
	Scanner   CodeScanner
	Verifier  IdentityVerifier
	Presence  PresenceDetector
	Vitals    VitalsPoller
	Samples   sensor.Source
	Photo     PhotoCapturer
	Submitter Submitter
	Display   Display
	Popup     PopupNotifier
	Session   SessionStore
	Events    EventPublisher
	Auditor   SubmissionAuditor
}

// 页面元素 id
const (
	ElementQuestion     = "questionDisplay"
	ElementAnswer       = "answerDisplay"
	ElementVitals       = "capturedVitals"
	ElementVitalsStatus = "vitalsStatusText"
	ElementWeight       = "weightText"
)
