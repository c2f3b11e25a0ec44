package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/ports"
)

// RefreshTemplatesUseCase pulls all template schemas for the configured
// scopes and atomically replaces the session cache.
type RefreshTemplatesUseCase struct {
	source ports.TemplateSource
	cache  ports.TemplateCache
	scopes []string
}

func NewRefreshTemplatesUseCase(source ports.TemplateSource, cache ports.TemplateCache, scopes []string) *RefreshTemplatesUseCase {
	if len(scopes) == 0 {
		scopes = []string{"enterprise", "global"}
	}
	return &RefreshTemplatesUseCase{
		source: source,
		cache:  cache,
		scopes: scopes,
	}
}

func (uc *RefreshTemplatesUseCase) Refresh(ctx context.Context) (int, error) {
	var all []domain.Template
	for _, scope := range uc.scopes {
		templates, err := uc.source.ListTemplates(ctx, scope)
		if err != nil {
			return 0, fmt.Errorf("list %s templates: %w", scope, err)
		}
		all = append(all, templates...)
	}

	uc.cache.Replace(all)
	slog.Info("template_cache_refreshed", "templates", len(all), "scopes", uc.scopes)
	return len(all), nil
}

func (uc *RefreshTemplatesUseCase) Templates() []domain.Template {
	return uc.cache.All()
}
