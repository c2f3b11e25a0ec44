package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

type templateSourceFake struct {
	byScope map[string][]domain.Template
	errs    map[string]error
}

func (f *templateSourceFake) ListTemplates(_ context.Context, scope string) ([]domain.Template, error) {
	if err := f.errs[scope]; err != nil {
		return nil, err
	}
	return f.byScope[scope], nil
}

func TestRefreshReplacesCacheAcrossScopes(t *testing.T) {
	source := &templateSourceFake{byScope: map[string][]domain.Template{
		"enterprise": {
			{ID: "enterprise_12345_invoice", Scope: "enterprise_12345", Key: "invoice"},
			{ID: "enterprise_12345_taxReturn", Scope: "enterprise_12345", Key: "taxReturn"},
		},
		"global": {
			{ID: "global_properties", Scope: "global", Key: "properties"},
		},
	}}
	cache := &templateCacheFake{templates: []domain.Template{
		{ID: "stale", Scope: "enterprise_12345", Key: "old"},
	}}

	uc := NewRefreshTemplatesUseCase(source, cache, nil)
	count, err := uc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 templates, got %d", count)
	}
	if cache.Len() != 3 {
		t.Fatalf("cache not replaced, len=%d", cache.Len())
	}
	if _, ok := cache.Get("stale"); ok {
		t.Fatal("stale entry survived refresh")
	}
}

func TestRefreshScopeFailureLeavesCacheUntouched(t *testing.T) {
	source := &templateSourceFake{
		byScope: map[string][]domain.Template{
			"enterprise": {{ID: "enterprise_12345_invoice", Scope: "enterprise_12345", Key: "invoice"}},
		},
		errs: map[string]error{"global": errors.New("marker expired")},
	}
	cache := &templateCacheFake{templates: []domain.Template{
		{ID: "existing", Scope: "enterprise_12345", Key: "existing"},
	}}

	uc := NewRefreshTemplatesUseCase(source, cache, nil)
	if _, err := uc.Refresh(context.Background()); err == nil {
		t.Fatal("expected scope failure to surface")
	}
	if _, ok := cache.Get("existing"); !ok {
		t.Fatal("a failed refresh must not clobber the cache")
	}
}
