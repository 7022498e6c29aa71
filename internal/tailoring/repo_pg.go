package tailoring

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

func (r *PGRepo) CreateTask(ctx context.Context, task Task) error {
	jobs, err := json.Marshal(task.Jobs)
	if err != nil {
		return fmt.Errorf("marshal job descriptions: %w", err)
	}

	const query = `
INSERT INTO tailoring_tasks (id, resume_id, job_descriptions, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	_, err = r.DB.ExecContext(ctx, query, task.ID, task.ResumeID, jobs, task.Status, task.CreatedAt)
	return err
}

func (r *PGRepo) GetTask(ctx context.Context, taskID string) (Task, error) {
	const query = `
SELECT id, resume_id, job_descriptions, status, tailored_resumes, download_links, error_message, created_at, updated_at
FROM tailoring_tasks
WHERE id = $1
LIMIT 1`
	var (
		task    Task
		jobs    []byte
		results []byte
		links   []byte
		errMsg  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.ResumeID,
		&jobs,
		&task.Status,
		&results,
		&links,
		&errMsg,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	if len(jobs) > 0 {
		if err := json.Unmarshal(jobs, &task.Jobs); err != nil {
			return Task{}, fmt.Errorf("unmarshal job descriptions: %w", err)
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &task.Results); err != nil {
			return Task{}, fmt.Errorf("unmarshal tailored resumes: %w", err)
		}
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &task.DownloadLinks); err != nil {
			return Task{}, fmt.Errorf("unmarshal download links: %w", err)
		}
	}
	if errMsg.Valid {
		task.ErrorMessage = errMsg.String
	}
	return task, nil
}

func (r *PGRepo) UpdateTaskStatus(ctx context.Context, taskID, status string, results []Outcome, links []string, errMsg string) error {
	var (
		encodedResults []byte
		encodedLinks   []byte
		err            error
	)
	if results != nil {
		if encodedResults, err = json.Marshal(results); err != nil {
			return fmt.Errorf("marshal tailored resumes: %w", err)
		}
	}
	if links != nil {
		if encodedLinks, err = json.Marshal(links); err != nil {
			return fmt.Errorf("marshal download links: %w", err)
		}
	}

	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}

	const query = `
UPDATE tailoring_tasks
SET status = $2, tailored_resumes = $3, download_links = $4, error_message = $5, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, taskID, status, encodedResults, encodedLinks, msg)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
