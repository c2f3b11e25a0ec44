package templatecache

import (
	"testing"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

func TestReplaceSwapsFullSet(t *testing.T) {
	cache := New()
	cache.Replace([]domain.Template{
		{ID: "enterprise_12345_old", Scope: "enterprise_12345", Key: "old"},
	})
	cache.Replace([]domain.Template{
		{ID: "enterprise_12345_invoice", Scope: "enterprise_12345", Key: "invoice"},
		{ID: "global_properties", Scope: "global", Key: "properties"},
	})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 templates, got %d", cache.Len())
	}
	if _, ok := cache.Get("enterprise_12345_old"); ok {
		t.Fatal("stale template survived replace")
	}
	tpl, ok := cache.Get("enterprise_12345_invoice")
	if !ok || tpl.Key != "invoice" {
		t.Fatalf("lookup failed: %+v ok=%v", tpl, ok)
	}
	if cache.RefreshedAt().IsZero() {
		t.Fatal("refresh timestamp not recorded")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	cache := New()
	cache.Replace([]domain.Template{{ID: "a"}, {ID: "b"}})

	all := cache.All()
	all[0].ID = "mutated"
	if tpl, _ := cache.Get("a"); tpl.ID != "a" {
		t.Fatal("caller mutation leaked into cache")
	}
}

func TestEmptyCache(t *testing.T) {
	cache := New()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Len())
	}
	if _, ok := cache.Get("anything"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
}
