package domain

import "strings"

// DocumentTypes is the fixed taxonomy the classifier chooses from. Order
// matters: it is the order presented to the model and used for snapping.
var DocumentTypes = []string{
	"Sales Contract",
	"Invoices",
	"Tax",
	"Financial Report",
	"Employment Contract",
	"PII",
	DocumentTypeOther,
}

const DocumentTypeOther = "Other"

// Classification is one file's categorization result.
type Classification struct {
	FileID       string  `json:"file_id"`
	FileName     string  `json:"file_name,omitempty"`
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// ClassificationOutcome pairs one file's classification with its suggested
// template, or carries the per-file error that replaced it.
type ClassificationOutcome struct {
	FileID              string         `json:"file_id"`
	FileName            string         `json:"file_name,omitempty"`
	Classification      Classification `json:"classification,omitzero"`
	SuggestedTemplateID string         `json:"suggested_template_id,omitempty"`
	Error               string         `json:"error,omitempty"`
}

// FallbackClassification is what a non-parseable model answer degrades to.
func FallbackClassification(fileID, raw string) Classification {
	return Classification{
		FileID:       fileID,
		DocumentType: DocumentTypeOther,
		Confidence:   0,
		Reasoning:    raw,
	}
}

// SnapDocumentType maps a free-text category label onto the taxonomy,
// falling back to Other.
func SnapDocumentType(label string) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	for _, dt := range DocumentTypes {
		if strings.Contains(lowered, strings.ToLower(dt)) {
			return dt
		}
	}
	return DocumentTypeOther
}
