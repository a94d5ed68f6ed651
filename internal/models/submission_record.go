package models

import "time"

// 提交审计状态
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusFailed    = "failed"
)

// SubmissionRecord 一次提交尝试的审计记录（intake_submissions 表）
type SubmissionRecord struct {
	ID          int64              `json:"id"`
	InterviewID string             `json:"interview_id"`
	DeviceID    string             `json:"device_id"`
	PatientID   string             `json:"patient_id"`
	Payload     *SubmissionPayload `json:"payload"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}
