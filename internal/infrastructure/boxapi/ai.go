package boxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// Classifier categorizes files against the fixed document taxonomy via the
// AI question endpoint.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) ClassifyFile(ctx context.Context, fileID string) (domain.Classification, error) {
	request := c.client.applyAgent(map[string]any{
		"mode":   "single_item_qa",
		"prompt": buildClassificationPrompt(),
		"items":  fileItems(fileID),
	}, domain.AgentAsk)

	var response struct {
		Answer string `json:"answer"`
	}
	err := c.client.call(ctx, "box.ai.ask", func(ctx context.Context) error {
		return c.client.postJSON(ctx, "/2.0/ai/ask", request, &response, "classify")
	})
	if err != nil {
		return domain.Classification{}, err
	}

	return parseClassificationAnswer(fileID, response.Answer), nil
}

// parseClassificationAnswer never fails: an answer that does not carry the
// expected JSON degrades to an Other classification that preserves the raw
// text as reasoning.
func parseClassificationAnswer(fileID, answer string) domain.Classification {
	var parsed struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
		Reasoning    string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(answer)), &parsed); err != nil || parsed.DocumentType == "" {
		return domain.FallbackClassification(fileID, answer)
	}
	return domain.Classification{
		FileID:       fileID,
		DocumentType: domain.SnapDocumentType(parsed.DocumentType),
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
	}
}

func buildClassificationPrompt() string {
	var b strings.Builder
	b.WriteString("Classify this document into exactly one of the following categories:\n")
	for _, dt := range domain.DocumentTypes {
		fmt.Fprintf(&b, "- %s\n", dt)
	}
	b.WriteString("\nRespond with a JSON object only, no other text:\n")
	b.WriteString(`{"document_type": "<category>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)
	return b.String()
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// Extractor pulls metadata out of files via the AI extraction endpoints, in
// either the template-driven or the prompt-driven shape.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) ExtractStructured(ctx context.Context, fileID string, template domain.TemplateIdentity) (domain.FieldMap, error) {
	request := e.client.applyAgent(map[string]any{
		"items": fileItems(fileID),
		"metadata_template": map[string]any{
			"template_key": template.Key,
			"type":         "metadata_template",
			"scope":        template.Scope,
		},
	}, domain.AgentExtractStructured)

	var response map[string]any
	err := e.client.call(ctx, "box.ai.extract_structured", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/2.0/ai/extract_structured", request, &response, "extract structured")
	})
	if err != nil {
		return nil, err
	}
	return domain.FieldMap(response), nil
}

func (e *Extractor) ExtractFreeform(ctx context.Context, fileID string, prompt string) (domain.FieldMap, error) {
	request := e.client.applyAgent(map[string]any{
		"prompt": prompt,
		"items":  fileItems(fileID),
	}, domain.AgentExtract)

	var response struct {
		Answer string `json:"answer"`
	}
	err := e.client.call(ctx, "box.ai.extract", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/2.0/ai/extract", request, &response, "extract freeform")
	})
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(response.Answer)), &fields); err != nil {
		// Not every model answers with JSON; keep the text under a
		// stable key instead of failing the file.
		return domain.FieldMap{"extracted_text": response.Answer}, nil
	}
	return domain.FieldMap(fields), nil
}
