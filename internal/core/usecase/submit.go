package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/ports"
)

// DefaultFreeformPrompt is used when a freeform batch is submitted without
// an explicit prompt.
const DefaultFreeformPrompt = "Extract key metadata from this document including dates, names, amounts, and other important information."

// SubmitBatchUseCase validates and persists a batch run, hands it to the
// worker queue, and serves run reports and cancellation.
type SubmitBatchUseCase struct {
	store    ports.RunStore
	queue    ports.BatchQueue
	defaults domain.BatchOptions
}

// NewSubmitBatchUseCase takes the process-level option defaults; any field
// left unset there falls back to the built-in defaults.
func NewSubmitBatchUseCase(store ports.RunStore, queue ports.BatchQueue, defaults domain.BatchOptions) *SubmitBatchUseCase {
	return &SubmitBatchUseCase{
		store:    store,
		queue:    queue,
		defaults: defaults.WithDefaults(domain.DefaultBatchOptions()),
	}
}

func (uc *SubmitBatchUseCase) Submit(ctx context.Context, run *domain.BatchRun) (string, error) {
	if err := validateRun(run); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	run.ID = uuid.NewString()
	run.Status = domain.RunQueued
	run.Options = run.Options.WithDefaults(uc.defaults)
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Mode == domain.ExtractionFreeform && run.Prompt == "" {
		run.Prompt = DefaultFreeformPrompt
	}

	if err := uc.store.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("create batch run: %w", err)
	}
	if err := uc.queue.PublishBatchQueued(ctx, run.ID); err != nil {
		return "", fmt.Errorf("publish batch run: %w", err)
	}
	return run.ID, nil
}

func (uc *SubmitBatchUseCase) Report(ctx context.Context, runID string) (domain.BatchReport, error) {
	run, err := uc.store.GetRun(ctx, runID)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("fetch batch run: %w", err)
	}
	outcomes, err := uc.store.ListOutcomes(ctx, runID)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("list outcomes: %w", err)
	}
	return domain.BuildReport(run, outcomes), nil
}

func (uc *SubmitBatchUseCase) Cancel(ctx context.Context, runID string) error {
	if err := uc.store.RequestCancel(ctx, runID); err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	return nil
}

func validateRun(run *domain.BatchRun) error {
	if len(run.Files) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("no files selected"))
	}
	for _, file := range run.Files {
		if file.ID == "" {
			return domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("file with empty id"))
		}
	}
	if !run.Mode.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("unknown extraction mode %q", run.Mode))
	}
	if run.Mode == domain.ExtractionStructured {
		if _, err := domain.ParseTemplateID(run.TemplateID); err != nil {
			return err
		}
	}
	return nil
}
