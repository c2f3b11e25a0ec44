package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetRunReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, files, mode, template_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRun(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetRunUnmarshalsJSONColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "files", "mode", "template_id", "prompt", "ai_model",
		"options", "status", "error_message", "cancel_requested", "created_at", "updated_at",
	}).AddRow(
		"run-1",
		[]byte(`[{"id":"f-1","name":"a.pdf"}]`),
		"structured",
		"enterprise_12345_invoice",
		"",
		"",
		[]byte(`{"batch_size":5,"max_retries":3,"retry_delay":2000000000,"operation_timeout":60000000000,"normalize_keys":true,"filter_placeholders":true}`),
		"queued",
		"",
		false,
		now,
		now,
	)
	mock.ExpectQuery("SELECT id, files, mode, template_id").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(run.Files) != 1 || run.Files[0].ID != "f-1" {
		t.Fatalf("files not decoded: %+v", run.Files)
	}
	if run.Mode != domain.ExtractionStructured || run.Status != domain.RunQueued {
		t.Fatalf("enums not restored: %+v", run)
	}
	if run.Options.MaxRetries != 3 || run.Options.RetryDelay != 2*time.Second {
		t.Fatalf("options not decoded: %+v", run.Options)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRequestCancelReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE batch_runs").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RequestCancel(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOutcomeUpsertsByRunAndFile(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO batch_outcomes").
		WithArgs("run-1", "f-1", "a.pdf", true, "", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveOutcome(context.Background(), "run-1", domain.ApplyOutcome{
		FileID:   "f-1",
		FileName: "a.pdf",
		Success:  true,
		Applied:  domain.FieldMap{"vendor": "Acme"},
	})
	if err != nil {
		t.Fatalf("SaveOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListOutcomesDecodesAppliedFields(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"file_id", "file_name", "success", "error_message", "applied", "updated"}).
		AddRow("f-1", "a.pdf", true, "", []byte(`{"vendor":"Acme"}`), true).
		AddRow("f-2", "b.pdf", false, "extract metadata: model refused", nil, false)
	mock.ExpectQuery("SELECT file_id, file_name, success").
		WithArgs("run-1").
		WillReturnRows(rows)

	outcomes, err := repo.ListOutcomes(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ListOutcomes() error = %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Applied["vendor"] != "Acme" || !outcomes[0].Updated {
		t.Fatalf("applied fields not decoded: %+v", outcomes[0])
	}
	if outcomes[1].Success || outcomes[1].Error == "" {
		t.Fatalf("failure row not decoded: %+v", outcomes[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
