// Package repository 提供提交审计记录的 PostgreSQL 存储
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"wisefido-intake/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS intake_submissions (
	id           BIGSERIAL PRIMARY KEY,
	interview_id UUID NOT NULL,
	device_id    TEXT NOT NULL,
	patient_id   TEXT,
	payload      JSONB NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_intake_submissions_submitted_at ON intake_submissions (submitted_at DESC);
`

// SubmissionRepository 提交审计仓库
type SubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository 创建提交审计仓库
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure intake_submissions schema: %w", err)
	}
	return nil
}

// Save 写入一条审计记录，回填 ID
func (r *SubmissionRepository) Save(ctx context.Context, rec *models.SubmissionRecord) error {
	if rec == nil {
		return fmt.Errorf("submission record is required")
	}
	if rec.InterviewID == "" {
		return fmt.Errorf("interview_id is required")
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO intake_submissions (
			interview_id, device_id, patient_id, payload, status, error, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		rec.InterviewID,
		rec.DeviceID,
		nullString(rec.PatientID),
		payload,
		rec.Status,
		nullString(rec.Error),
		rec.SubmittedAt,
	).Scan(&rec.ID)
	if err != nil {
		r.logger.Error("Failed to save submission",
			zap.String("interview_id", rec.InterviewID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// ListRecent 按提交时间倒序返回最近 limit 条
func (r *SubmissionRepository) ListRecent(ctx context.Context, limit int) ([]*models.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, interview_id, device_id, patient_id, payload, status, error, submitted_at
		FROM intake_submissions
		ORDER BY submitted_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.SubmissionRecord
	for rows.Next() {
		var (
			rec       models.SubmissionRecord
			patientID sql.NullString
			payload   []byte
			errText   sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.InterviewID, &rec.DeviceID, &patientID,
			&payload, &rec.Status, &errText, &rec.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		rec.PatientID = patientID.String
		rec.Error = errText.String
		if len(payload) > 0 {
			rec.Payload = &models.SubmissionPayload{}
			if err := json.Unmarshal(payload, rec.Payload); err != nil {
				r.logger.Warn("Corrupt submission payload",
					zap.Int64("id", rec.ID),
					zap.Error(err),
				)
				rec.Payload = nil
			}
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
