package domain

import (
	"errors"
	"strings"
)

// FieldType is the closed set of field types a metadata template can declare.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldEnum    FieldType = "enum"
	FieldDate    FieldType = "date"
	FieldFloat   FieldType = "float"
	FieldInteger FieldType = "integer"
)

type TemplateField struct {
	Key         string    `json:"key"`
	DisplayName string    `json:"displayName"`
	Type        FieldType `json:"type"`
	Options     []string  `json:"options,omitempty"`
}

// Template is a named, scoped schema of typed fields the cloud service can
// attach to a file. Immutable once fetched; cached per session.
type Template struct {
	ID          string          `json:"id"`
	Scope       string          `json:"scope"`
	Key         string          `json:"key"`
	DisplayName string          `json:"displayName"`
	Fields      []TemplateField `json:"fields"`
	Hidden      bool            `json:"hidden"`
}

// TemplateIdentity is the (scope, key) pair the metadata endpoints address a
// template by. Scope carries the enterprise id ("enterprise_12345"), key is
// the bare template key.
type TemplateIdentity struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
}

func (t Template) Identity() TemplateIdentity {
	return TemplateIdentity{Scope: t.Scope, Key: t.Key}
}

// FreeformIdentity addresses the generic properties record used when no
// template applies.
func FreeformIdentity() TemplateIdentity {
	return TemplateIdentity{Scope: "global", Key: "properties"}
}

func (t TemplateIdentity) IsFreeform() bool {
	return t.Scope == "global" && t.Key == "properties"
}

// ParseTemplateID splits a composite template identifier into its scope and
// bare key. Composite ids look like "enterprise_12345_invoice_template" or
// "enterprise_12345 invoice_template"; the scope must keep the enterprise id
// attached ("enterprise_12345") and the key keeps its own underscores.
// Sending the full composite string as the scope is the defect this exists
// to prevent.
func ParseTemplateID(id string) (TemplateIdentity, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return TemplateIdentity{}, WrapError(ErrInvalidInput, "parse template id", errors.New("empty id"))
	}

	if fields := strings.Fields(trimmed); len(fields) > 1 {
		return TemplateIdentity{
			Scope: fields[0],
			Key:   strings.Join(fields[1:], "_"),
		}, nil
	}

	parts := strings.Split(trimmed, "_")
	switch {
	case parts[0] == "enterprise" && len(parts) >= 3:
		return TemplateIdentity{
			Scope: parts[0] + "_" + parts[1],
			Key:   strings.Join(parts[2:], "_"),
		}, nil
	case parts[0] == "global" && len(parts) >= 2:
		return TemplateIdentity{
			Scope: "global",
			Key:   strings.Join(parts[1:], "_"),
		}, nil
	default:
		return TemplateIdentity{}, WrapError(ErrInvalidInput, "parse template id", errors.New("unrecognized composite id: "+trimmed))
	}
}
