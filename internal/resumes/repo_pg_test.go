package resumes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateResume(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	res := Resume{
		ID:         "resume-1",
		FileName:   "resume.pdf",
		StorageKey: "uploads/resume-1_resume.pdf",
		Status:     StatusUploaded,
		UploadedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO resumes").
		WithArgs(res.ID, res.FileName, res.StorageKey, res.Status, res.UploadedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateResume(context.Background(), res); err != nil {
		t.Fatalf("CreateResume: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetResumeNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT id, file_name, storage_path, status, uploaded_at").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "storage_path", "status", "uploaded_at"}))

	if _, err := repo.GetResume(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetExtractionStateMarshalsData(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("INSERT INTO extraction_states").
		WithArgs("resume-1", StatusCompleted, []byte(`{"summary":"go engineer"}`), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.SetExtractionState(context.Background(), ExtractionState{
		ResumeID: "resume-1",
		Status:   StatusCompleted,
		Data:     map[string]any{"summary": "go engineer"},
	})
	if err != nil {
		t.Fatalf("SetExtractionState: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetExtractionStateDefaultsToPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	uploadedAt := time.Now().UTC()
	mock.ExpectQuery("SELECT id, file_name, storage_path, status, uploaded_at").
		WithArgs("resume-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "storage_path", "status", "uploaded_at"}).
			AddRow("resume-1", "resume.pdf", "uploads/resume-1_resume.pdf", StatusUploaded, uploadedAt))
	mock.ExpectQuery("SELECT resume_id, status, extracted_data, error_message, updated_at").
		WithArgs("resume-1").
		WillReturnRows(sqlmock.NewRows([]string{"resume_id", "status", "extracted_data", "error_message", "updated_at"}))

	state, err := repo.GetExtractionState(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("GetExtractionState: %v", err)
	}
	if state.Status != StatusPending {
		t.Fatalf("expected pending, got %q", state.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompareAndSetBlocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	uploadedAt := time.Now().UTC()
	mock.ExpectQuery("SELECT id, file_name, storage_path, status, uploaded_at").
		WithArgs("resume-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "storage_path", "status", "uploaded_at"}).
			AddRow("resume-1", "resume.pdf", "uploads/resume-1_resume.pdf", StatusUploaded, uploadedAt))
	mock.ExpectExec("INSERT INTO extraction_states").
		WithArgs("resume-1", StatusProcessing, `["processing"]`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.CompareAndSetExtractionStatus(context.Background(), "resume-1", StatusProcessing, StatusProcessing)
	if err != nil {
		t.Fatalf("CompareAndSetExtractionStatus: %v", err)
	}
	if won {
		t.Fatal("expected guard to block the transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
