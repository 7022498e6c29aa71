package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) CreateResume(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (id, file_name, storage_path, status, uploaded_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, res.ID, res.FileName, res.StorageKey, res.Status, res.UploadedAt)
	return err
}

func (r *PGRepo) GetResume(ctx context.Context, resumeID string) (Resume, error) {
	const query = `
SELECT id, file_name, storage_path, status, uploaded_at
FROM resumes
WHERE id = $1
LIMIT 1`
	var res Resume
	err := r.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&res.ID,
		&res.FileName,
		&res.StorageKey,
		&res.Status,
		&res.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

func (r *PGRepo) SetExtractionState(ctx context.Context, state ExtractionState) error {
	var data []byte
	if state.Data != nil {
		encoded, err := json.Marshal(state.Data)
		if err != nil {
			return fmt.Errorf("marshal extracted data: %w", err)
		}
		data = encoded
	}

	var errMsg sql.NullString
	if state.ErrorMessage != "" {
		errMsg = sql.NullString{String: state.ErrorMessage, Valid: true}
	}

	const query = `
INSERT INTO extraction_states (resume_id, status, extracted_data, error_message, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (resume_id) DO UPDATE
SET status = EXCLUDED.status,
    extracted_data = EXCLUDED.extracted_data,
    error_message = EXCLUDED.error_message,
    updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query, state.ResumeID, state.Status, data, errMsg)
	return err
}

func (r *PGRepo) GetExtractionState(ctx context.Context, resumeID string) (ExtractionState, error) {
	if _, err := r.GetResume(ctx, resumeID); err != nil {
		return ExtractionState{}, err
	}

	const query = `
SELECT resume_id, status, extracted_data, error_message, updated_at
FROM extraction_states
WHERE resume_id = $1
LIMIT 1`
	var (
		state  ExtractionState
		data   []byte
		errMsg sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, resumeID).Scan(
		&state.ResumeID,
		&state.Status,
		&data,
		&errMsg,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExtractionState{ResumeID: resumeID, Status: StatusPending}, nil
		}
		return ExtractionState{}, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &state.Data); err != nil {
			return ExtractionState{}, fmt.Errorf("unmarshal extracted data: %w", err)
		}
	}
	if errMsg.Valid {
		state.ErrorMessage = errMsg.String
	}
	return state, nil
}

func (r *PGRepo) CompareAndSetExtractionStatus(ctx context.Context, resumeID, to string, unless ...string) (bool, error) {
	if _, err := r.GetResume(ctx, resumeID); err != nil {
		return false, err
	}

	blocked := unless
	if blocked == nil {
		blocked = []string{}
	}
	encodedBlocked, err := json.Marshal(blocked)
	if err != nil {
		return false, err
	}

	// The upsert guard rejects the transition when the existing status is in
	// the blocked set, so concurrent triggers resolve to a single winner.
	const query = `
INSERT INTO extraction_states (resume_id, status, extracted_data, error_message, updated_at)
VALUES ($1, $2, NULL, NULL, now())
ON CONFLICT (resume_id) DO UPDATE
SET status = EXCLUDED.status,
    extracted_data = NULL,
    error_message = NULL,
    updated_at = now()
WHERE NOT (extraction_states.status = ANY (
    SELECT jsonb_array_elements_text($3::jsonb)
))`
	res, err := r.DB.ExecContext(ctx, query, resumeID, to, string(encodedBlocked))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

var _ Repo = (*PGRepo)(nil)
