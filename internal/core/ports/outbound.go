package ports

import (
	"context"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// TemplateSource lists metadata template schemas from the cloud service.
type TemplateSource interface {
	ListTemplates(ctx context.Context, scope string) ([]domain.Template, error)
}

// TemplateCache stores the session's template schemas. Written only by the
// template refresh stage, read by everyone else.
type TemplateCache interface {
	Replace(templates []domain.Template)
	All() []domain.Template
	Get(id string) (domain.Template, bool)
	Len() int
}

// FileClassifier asks the AI endpoint to categorize one file against the
// fixed taxonomy.
type FileClassifier interface {
	ClassifyFile(ctx context.Context, fileID string) (domain.Classification, error)
}

// MetadataExtractor invokes the AI extraction endpoint in one of its two
// request shapes.
type MetadataExtractor interface {
	ExtractStructured(ctx context.Context, fileID string, template domain.TemplateIdentity) (domain.FieldMap, error)
	ExtractFreeform(ctx context.Context, fileID string, prompt string) (domain.FieldMap, error)
}

// MetadataWriter persists a resolved field map on a file.
type MetadataWriter interface {
	CreateFileMetadata(ctx context.Context, fileID string, target domain.TemplateIdentity, fields domain.FieldMap) error
	UpdateFileMetadata(ctx context.Context, fileID string, target domain.TemplateIdentity, ops []domain.MetadataOp) error
}

// BatchQueue hands queued batch runs from the API to the worker.
type BatchQueue interface {
	PublishBatchQueued(ctx context.Context, runID string) error
	SubscribeBatchQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// RunStore persists batch runs and their per-file outcomes. Written only by
// the stages that own them: the API creates runs and sets the cancel flag,
// the batch runner writes status transitions and outcomes.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.BatchRun) error
	GetRun(ctx context.Context, id string) (*domain.BatchRun, error)
	UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)
	SaveOutcome(ctx context.Context, runID string, outcome domain.ApplyOutcome) error
	ListOutcomes(ctx context.Context, runID string) ([]domain.ApplyOutcome, error)
}
