package domain

import "time"

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// FileRef identifies one selected file in a batch.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BatchOptions is the user-settable surface of a batch run. The boolean
// knobs are pointers so that an absent field stays distinguishable from an
// explicit false until WithDefaults resolves it.
type BatchOptions struct {
	BatchSize          int           `json:"batch_size"`
	MaxRetries         int           `json:"max_retries"`
	RetryDelay         time.Duration `json:"retry_delay"`
	OperationTimeout   time.Duration `json:"operation_timeout"`
	NormalizeKeys      *bool         `json:"normalize_keys,omitempty"`
	FilterPlaceholders *bool         `json:"filter_placeholders,omitempty"`
}

// BoolRef is a convenience for setting the optional boolean knobs.
func BoolRef(v bool) *bool {
	return &v
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:          5,
		MaxRetries:         3,
		RetryDelay:         2 * time.Second,
		OperationTimeout:   60 * time.Second,
		NormalizeKeys:      BoolRef(true),
		FilterPlaceholders: BoolRef(true),
	}
}

// WithDefaults resolves every unset field against defaults. A negative
// MaxRetries means "no retries" and is clamped to zero; zero means unset.
func (o BatchOptions) WithDefaults(defaults BatchOptions) BatchOptions {
	out := o
	if out.BatchSize <= 0 {
		out.BatchSize = defaults.BatchSize
	}
	if out.MaxRetries == 0 {
		out.MaxRetries = defaults.MaxRetries
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = defaults.RetryDelay
	}
	if out.OperationTimeout <= 0 {
		out.OperationTimeout = defaults.OperationTimeout
	}
	if out.NormalizeKeys == nil {
		out.NormalizeKeys = defaults.NormalizeKeys
	}
	if out.FilterPlaceholders == nil {
		out.FilterPlaceholders = defaults.FilterPlaceholders
	}
	return out
}

// NormalizeKeysOn reports the resolved value of the knob; unresolved options
// fall back to the documented default of true.
func (o BatchOptions) NormalizeKeysOn() bool {
	return o.NormalizeKeys == nil || *o.NormalizeKeys
}

func (o BatchOptions) FilterPlaceholdersOn() bool {
	return o.FilterPlaceholders == nil || *o.FilterPlaceholders
}

// BatchRun is one submitted batch: which files, how to extract, where to
// write. The run store is the system of record for its lifecycle.
type BatchRun struct {
	ID              string         `json:"id"`
	Files           []FileRef      `json:"files"`
	Mode            ExtractionMode `json:"mode"`
	TemplateID      string         `json:"template_id,omitempty"`
	Prompt          string         `json:"prompt,omitempty"`
	AIModel         string         `json:"ai_model,omitempty"`
	Options         BatchOptions   `json:"options"`
	Status          RunStatus      `json:"status"`
	Error           string         `json:"error,omitempty"`
	CancelRequested bool           `json:"cancel_requested"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// BatchReport is the accumulated result of a finished (or in-flight) run.
type BatchReport struct {
	RunID     string         `json:"run_id"`
	Status    RunStatus      `json:"status"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Outcomes  []ApplyOutcome `json:"outcomes"`
}

func BuildReport(run *BatchRun, outcomes []ApplyOutcome) BatchReport {
	report := BatchReport{
		RunID:    run.ID,
		Status:   run.Status,
		Total:    len(run.Files),
		Outcomes: outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}
