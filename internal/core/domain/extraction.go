package domain

// FieldMap is a raw key/value record as produced by an AI extraction call.
// Shapes vary: flat map, wrapped under an "answer" key, or containing
// stringified nested objects. The normalizer flattens it before application.
type FieldMap map[string]any

func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AgentMode is the closed set of AI agent override discriminators. The
// override must match the extraction mode of the call carrying it; a zero
// value omits the override and lets the service pick its default.
type AgentMode string

const (
	AgentAsk               AgentMode = "ai_agent_ask"
	AgentExtract           AgentMode = "ai_agent_extract"
	AgentExtractStructured AgentMode = "ai_agent_extract_structured"
)

// ExtractionMode selects how metadata is extracted for a batch.
type ExtractionMode string

const (
	ExtractionStructured ExtractionMode = "structured"
	ExtractionFreeform   ExtractionMode = "freeform"
)

func (m ExtractionMode) Valid() bool {
	return m == ExtractionStructured || m == ExtractionFreeform
}
