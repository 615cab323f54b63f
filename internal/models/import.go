package models

// RawRow is one data row of an uploaded spreadsheet, keyed by header
type RawRow struct {
	// Number is the 1-based position of the row in the file, header excluded
	Number  int
	Columns []string
	Values  map[string]string
}

// Get returns the cell under column, or "" when absent
func (r RawRow) Get(column string) string {
	return r.Values[column]
}

// IsBlank reports whether every cell of the row is empty
func (r RawRow) IsBlank() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// RowError lists every validation failure of a single source row
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ValidationResult is the outcome of validating an uploaded file
type ValidationResult struct {
	Valid    []*ClientImportRecord `json:"valid"`
	Invalid  []RowError            `json:"invalid"`
	Warnings []string              `json:"warnings"`
}

// TotalRows returns the number of rows that were validated
func (v *ValidationResult) TotalRows() int {
	return len(v.Valid) + len(v.Invalid)
}

// InsertFailure is a repository rejection of one record of a submitted batch
type InsertFailure struct {
	Index   int    `json:"index"` // position in the submitted batch
	Message string `json:"message"`
}

// InsertResult is the repository outcome of an insert-many call
type InsertResult struct {
	Inserted int             `json:"inserted"`
	Failures []InsertFailure `json:"failures,omitempty"`
}

// ImportResult summarizes a finished commit
type ImportResult struct {
	Inserted     int      `json:"inserted"`
	Errors       []string `json:"errors"`
	TotalValid   int      `json:"total_valid"`
	TotalInvalid int      `json:"total_invalid"`
	Cancelled    bool     `json:"cancelled,omitempty"`
}

// PipelineState is the state of an import session
type PipelineState string

const (
	StateIdle       PipelineState = "idle"
	StateParsing    PipelineState = "parsing"
	StatePreviewing PipelineState = "previewing"
	StateImporting  PipelineState = "importing"
	StateDone       PipelineState = "done"
	StateError      PipelineState = "error"
)

// ValidationSummary is the preview payload sent to clients
type ValidationSummary struct {
	ValidCount   int                   `json:"valid_count"`
	InvalidCount int                   `json:"invalid_count"`
	Valid        []*ClientImportRecord `json:"valid,omitempty"`
	Invalid      []RowError            `json:"invalid"`
	Warnings     []string              `json:"warnings"`
}

// Snapshot is a read-only view of an import session
type Snapshot struct {
	SessionID    string             `json:"session_id"`
	State        PipelineState      `json:"state"`
	FileName     string             `json:"file_name,omitempty"`
	Validation   *ValidationSummary `json:"validation,omitempty"`
	ImportResult *ImportResult      `json:"import_result,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Progress     int                `json:"progress"`
}
