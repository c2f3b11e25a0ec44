package usecase

import (
	"context"
	"log/slog"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/match"
	"github.com/antonvlasov/metapilot/internal/core/ports"
)

// ClassifyFilesUseCase runs the classifier over a selection of files and
// suggests a best-fit template per result. One file's failure is recorded
// in its outcome and never stops the rest.
type ClassifyFilesUseCase struct {
	classifier ports.FileClassifier
	cache      ports.TemplateCache
	matcher    *match.Matcher
}

func NewClassifyFilesUseCase(classifier ports.FileClassifier, cache ports.TemplateCache, matcher *match.Matcher) *ClassifyFilesUseCase {
	return &ClassifyFilesUseCase{
		classifier: classifier,
		cache:      cache,
		matcher:    matcher,
	}
}

func (uc *ClassifyFilesUseCase) ClassifyFiles(ctx context.Context, files []domain.FileRef) []domain.ClassificationOutcome {
	outcomes := make([]domain.ClassificationOutcome, 0, len(files))
	templates := uc.cache.All()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, domain.ClassificationOutcome{
				FileID:   file.ID,
				FileName: file.Name,
				Error:    err.Error(),
			})
			continue
		}

		cls, err := uc.classifier.ClassifyFile(ctx, file.ID)
		if err != nil {
			slog.Warn("classify_file_failed", "file_id", file.ID, "error", err)
			outcomes = append(outcomes, domain.ClassificationOutcome{
				FileID:   file.ID,
				FileName: file.Name,
				Error:    err.Error(),
			})
			continue
		}
		cls.FileID = file.ID
		cls.FileName = file.Name

		outcome := domain.ClassificationOutcome{
			FileID:         file.ID,
			FileName:       file.Name,
			Classification: cls,
		}
		if suggested, ok := uc.matcher.Suggest(cls.DocumentType, templates); ok {
			outcome.SuggestedTemplateID = suggested.ID
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
