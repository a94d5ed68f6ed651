package models

import "time"

// InterviewEvent 发布到事件流的状态机事件
type InterviewEvent struct {
	InterviewID string    `json:"interview_id"`
	DeviceID    string    `json:"device_id"`
	Phase       Phase     `json:"phase"`
	Event       string    `json:"event"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}
