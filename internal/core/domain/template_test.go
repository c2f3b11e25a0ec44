package domain

import "testing"

func TestParseTemplateIDKeepsEnterpriseScope(t *testing.T) {
	identity, err := ParseTemplateID("enterprise_12345_invoice_template")
	if err != nil {
		t.Fatalf("ParseTemplateID() error = %v", err)
	}
	if identity.Scope != "enterprise_12345" {
		t.Fatalf("expected scope enterprise_12345, got %q", identity.Scope)
	}
	if identity.Key != "invoice_template" {
		t.Fatalf("expected key invoice_template, got %q", identity.Key)
	}
}

func TestParseTemplateIDSpaceSeparatedComposite(t *testing.T) {
	identity, err := ParseTemplateID("enterprise_12345 invoice_template")
	if err != nil {
		t.Fatalf("ParseTemplateID() error = %v", err)
	}
	if identity.Scope != "enterprise_12345" || identity.Key != "invoice_template" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestParseTemplateIDGlobal(t *testing.T) {
	identity, err := ParseTemplateID("global_properties")
	if err != nil {
		t.Fatalf("ParseTemplateID() error = %v", err)
	}
	if !identity.IsFreeform() {
		t.Fatalf("expected freeform identity, got %+v", identity)
	}
}

func TestParseTemplateIDRejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "enterprise", "justakey"} {
		if _, err := ParseTemplateID(id); err == nil {
			t.Fatalf("expected error for %q", id)
		} else if !IsKind(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", id, err)
		}
	}
}
