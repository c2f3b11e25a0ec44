package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/normalize"
	"github.com/antonvlasov/metapilot/internal/core/ports"
)

// RunBatchUseCase executes one queued batch run: strictly sequential
// per-file extract → normalize → apply, with a cooperative cancel check
// between files, a per-operation timeout, and bounded retries around the
// extraction call. Every selected file ends up with exactly one outcome
// record; unresolved files are reported as errors, never dropped.
type RunBatchUseCase struct {
	store     ports.RunStore
	extractor ports.MetadataExtractor
	applier   *ApplyMetadataUseCase
	observer  FileObserver

	sleep func(context.Context, time.Duration) error
}

// FileObserver receives per-file processing signals, typically for metrics.
type FileObserver interface {
	StartFile()
	FinishFile(duration time.Duration, success, updated bool)
}

func NewRunBatchUseCase(store ports.RunStore, extractor ports.MetadataExtractor, applier *ApplyMetadataUseCase) *RunBatchUseCase {
	return &RunBatchUseCase{
		store:     store,
		extractor: extractor,
		applier:   applier,
		sleep:     sleepCtx,
	}
}

// SetObserver attaches a per-file observer. Must be called before Run.
func (uc *RunBatchUseCase) SetObserver(observer FileObserver) {
	uc.observer = observer
}

func (uc *RunBatchUseCase) Run(ctx context.Context, runID string) error {
	run, err := uc.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("fetch batch run: %w", err)
	}

	target, err := resolveTarget(run)
	if err != nil {
		if failErr := uc.store.UpdateRunStatus(ctx, runID, domain.RunFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.store.UpdateRunStatus(ctx, runID, domain.RunRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	opts := run.Options.WithDefaults(domain.DefaultBatchOptions())
	cancelled := false
	processed := 0
	for _, file := range run.Files {
		if uc.cancelRequested(ctx, runID) {
			cancelled = true
			break
		}

		if uc.observer != nil {
			uc.observer.StartFile()
		}
		fileStart := time.Now()
		outcome := uc.processFile(ctx, run, file, target, opts)
		if uc.observer != nil {
			uc.observer.FinishFile(time.Since(fileStart), outcome.Success, outcome.Updated)
		}
		if err := uc.store.SaveOutcome(ctx, runID, outcome); err != nil {
			slog.Error("save_outcome_failed", "run_id", runID, "file_id", file.ID, "error", err)
		}

		processed++
		if processed%opts.BatchSize == 0 && processed < len(run.Files) {
			uc.heartbeat(ctx, runID, processed, len(run.Files))
		}
	}

	status := domain.RunCompleted
	if cancelled {
		status = domain.RunCancelled
	}
	if err := uc.store.UpdateRunStatus(ctx, runID, status, ""); err != nil {
		return fmt.Errorf("set terminal status: %w", err)
	}
	return nil
}

// heartbeat touches the status row at chunk boundaries so updated_at keeps
// advancing on long runs; report readers can tell a slow run from a dead one.
func (uc *RunBatchUseCase) heartbeat(ctx context.Context, runID string, processed, total int) {
	slog.Info("batch_progress", "run_id", runID, "processed", processed, "total", total)
	if err := uc.store.UpdateRunStatus(ctx, runID, domain.RunRunning, ""); err != nil {
		slog.Warn("progress_heartbeat_failed", "run_id", runID, "error", err)
	}
}

func (uc *RunBatchUseCase) processFile(ctx context.Context, run *domain.BatchRun, file domain.FileRef, target domain.TemplateIdentity, opts domain.BatchOptions) domain.ApplyOutcome {
	raw, err := uc.extractWithRetry(ctx, run, file, target, opts)
	if err != nil {
		return domain.ApplyOutcome{
			FileID:   file.ID,
			FileName: file.Name,
			Error:    fmt.Sprintf("extract metadata: %v", err),
		}
	}

	fields := normalize.Normalize(raw, normalize.Options{
		FilterPlaceholders: opts.FilterPlaceholdersOn(),
		NormalizeKeys:      opts.NormalizeKeysOn(),
	})

	applyCtx, cancel := context.WithTimeout(ctx, opts.OperationTimeout)
	defer cancel()
	return uc.applier.ApplyToFile(applyCtx, file, target, fields)
}

func (uc *RunBatchUseCase) extractWithRetry(ctx context.Context, run *domain.BatchRun, file domain.FileRef, target domain.TemplateIdentity, opts domain.BatchOptions) (domain.FieldMap, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("extraction_retry",
				"run_id", run.ID,
				"file_id", file.ID,
				"attempt", attempt,
				"max_retries", opts.MaxRetries,
				"error", lastErr,
			)
			if err := uc.sleep(ctx, opts.RetryDelay); err != nil {
				return nil, lastErr
			}
		}

		opCtx, cancel := context.WithTimeout(ctx, opts.OperationTimeout)
		raw, err := uc.extract(opCtx, run, file, target)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (uc *RunBatchUseCase) extract(ctx context.Context, run *domain.BatchRun, file domain.FileRef, target domain.TemplateIdentity) (domain.FieldMap, error) {
	if run.Mode == domain.ExtractionStructured {
		return uc.extractor.ExtractStructured(ctx, file.ID, target)
	}
	return uc.extractor.ExtractFreeform(ctx, file.ID, run.Prompt)
}

// cancelRequested is the cooperative cancel check between per-file
// iterations; an in-flight network call is never interrupted by it.
func (uc *RunBatchUseCase) cancelRequested(ctx context.Context, runID string) bool {
	if ctx.Err() != nil {
		return true
	}
	requested, err := uc.store.CancelRequested(ctx, runID)
	if err != nil {
		slog.Warn("cancel_check_failed", "run_id", runID, "error", err)
		return false
	}
	return requested
}

func resolveTarget(run *domain.BatchRun) (domain.TemplateIdentity, error) {
	if run.Mode != domain.ExtractionStructured {
		return domain.FreeformIdentity(), nil
	}
	identity, err := domain.ParseTemplateID(run.TemplateID)
	if err != nil {
		return domain.TemplateIdentity{}, fmt.Errorf("resolve target template: %w", err)
	}
	return identity, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
