package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/ports"
)

// ApplyMetadataUseCase persists one file's resolved field map, template-typed
// or freeform, with create/update reconciliation: a create attempt that hits
// an existing record falls back to an update expressed as patch operations.
type ApplyMetadataUseCase struct {
	writer ports.MetadataWriter
}

func NewApplyMetadataUseCase(writer ports.MetadataWriter) *ApplyMetadataUseCase {
	return &ApplyMetadataUseCase{writer: writer}
}

func (uc *ApplyMetadataUseCase) ApplyToFile(ctx context.Context, file domain.FileRef, target domain.TemplateIdentity, fields domain.FieldMap) domain.ApplyOutcome {
	outcome := domain.ApplyOutcome{
		FileID:   file.ID,
		FileName: file.Name,
	}
	if len(fields) == 0 {
		outcome.Error = "no metadata found for this file"
		return outcome
	}

	err := uc.writer.CreateFileMetadata(ctx, file.ID, target, fields)
	if err == nil {
		outcome.Success = true
		outcome.Applied = fields
		return outcome
	}
	if !domain.IsKind(err, domain.ErrConflict) {
		outcome.Error = err.Error()
		return outcome
	}

	slog.Info("metadata_exists_switching_to_update",
		"file_id", file.ID,
		"scope", target.Scope,
		"template", target.Key,
	)
	if err := uc.writer.UpdateFileMetadata(ctx, file.ID, target, replaceOps(fields)); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	outcome.Applied = fields
	outcome.Updated = true
	return outcome
}

// replaceOps builds one replace operation per field, in sorted key order so
// the patch sequence is deterministic.
func replaceOps(fields domain.FieldMap) []domain.MetadataOp {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ops := make([]domain.MetadataOp, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, domain.MetadataOp{
			Op:    "replace",
			Path:  "/" + key,
			Value: fields[key],
		})
	}
	return ops
}
