package ports

import (
	"context"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// TemplateRefresher is the inbound contract for template cache maintenance.
type TemplateRefresher interface {
	Refresh(ctx context.Context) (int, error)
	Templates() []domain.Template
}

// ClassificationService classifies a selection of files and suggests a
// template per file.
type ClassificationService interface {
	ClassifyFiles(ctx context.Context, files []domain.FileRef) []domain.ClassificationOutcome
}

// BatchSubmitter is the inbound contract for queueing a batch run and
// reading it back.
type BatchSubmitter interface {
	Submit(ctx context.Context, run *domain.BatchRun) (string, error)
	Report(ctx context.Context, runID string) (domain.BatchReport, error)
	Cancel(ctx context.Context, runID string) error
}

// BatchRunner executes a queued batch run to completion.
type BatchRunner interface {
	Run(ctx context.Context, runID string) error
}
