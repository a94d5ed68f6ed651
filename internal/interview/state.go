package interview

import (
	"errors"
	"fmt"

	"wisefido-intake/internal/models"
)

// ErrInvalidTransition 事件在当前阶段不合法
var ErrInvalidTransition = errors.New("invalid phase transition")

// Event 驱动状态机的事件
type Event string

const (
	EventPatientDetected Event = "patient_detected" // 体重超过阈值
	EventOperatorStart   Event = "operator_start"   // 操作员手动开始
	EventAnswerCaptured  Event = "answer_captured"  // 语音回答成功 / 扫码核验成功 / 字段已存在
	EventAnswerFailed    Event = "answer_failed"    // 语音或扫码失败，重问当前问题
	EventVitalsDone      Event = "vitals_done"      // 传感器阶段结束（接受或超时）
	EventPhotoTaken      Event = "photo_taken"
	EventSubmitted       Event = "submitted" // 提交已尝试（无论成败）
	EventReset           Event = "reset"
)

// State 控制器持有的全部状态
type State struct {
	Phase         models.Phase `json:"phase"`
	QuestionIndex int          `json:"question_index"`
	QuestionCount int          `json:"question_count"`
	Retries       int          `json:"retries"` // 当前问题的连续失败次数
	Started       bool         `json:"started"`
	PhotoTaken    bool         `json:"photo_taken"`
	Submitted     bool         `json:"submitted"`
}

// InitialState 空闲等待体重触发
func InitialState() State {
	return State{Phase: models.PhaseIdle}
}

// Transition 纯函数：由当前状态和事件得到下一状态
// EventPatientDetected / EventOperatorStart 时 s.QuestionCount 必须已设置为问题数
func Transition(s State, e Event) (State, error) {
	invalid := func() (State, error) {
		return s, fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, e, s.Phase)
	}

	switch e {
	case EventPatientDetected, EventOperatorStart:
		if s.Phase != models.PhaseIdle || s.Started {
			return invalid()
		}
		next := State{Phase: models.PhaseDialogue, QuestionCount: s.QuestionCount, Started: true}
		if next.QuestionCount == 0 {
			next.Phase = models.PhaseHeartbeat
		}
		return next, nil

	case EventAnswerCaptured:
		if s.Phase != models.PhaseDialogue {
			return invalid()
		}
		s.QuestionIndex++
		s.Retries = 0
		if s.QuestionIndex >= s.QuestionCount {
			s.Phase = models.PhaseHeartbeat
		}
		return s, nil

	case EventAnswerFailed:
		if s.Phase != models.PhaseDialogue {
			return invalid()
		}
		s.Retries++
		return s, nil

	case EventVitalsDone:
		switch s.Phase {
		case models.PhaseHeartbeat:
			s.Phase = models.PhaseTemperature
		case models.PhaseTemperature:
			s.Phase = models.PhasePhoto
		default:
			return invalid()
		}
		return s, nil

	case EventPhotoTaken:
		if s.Phase != models.PhasePhoto || s.PhotoTaken {
			return invalid()
		}
		s.PhotoTaken = true
		s.Phase = models.PhaseSubmit
		return s, nil

	case EventSubmitted:
		if s.Phase != models.PhaseSubmit || s.Submitted {
			return invalid()
		}
		s.Submitted = true
		s.Phase = models.PhaseComplete
		return s, nil

	case EventReset:
		if s.Phase != models.PhaseComplete {
			return invalid()
		}
		return InitialState(), nil
	}
	return invalid()
}
