package domain

// MetadataOp is one patch operation of the update fallback path.
type MetadataOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// ApplyOutcome records one file's metadata application result. A batch
// accumulates these; a single file's failure never aborts the batch.
type ApplyOutcome struct {
	FileID   string   `json:"file_id"`
	FileName string   `json:"file_name"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	Applied  FieldMap `json:"applied,omitempty"`
	Updated  bool     `json:"updated,omitempty"`
}
