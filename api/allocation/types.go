package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation file lifecycle states. EXPIRED is derived at read time from
// expiry_date and never blocks the stored status from being IN_PROGRESS.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusExpired    = "EXPIRED"
)

// Per-case mapping states. ERROR rows are the re-upload working set.
const (
	MappingSaved = "SAVED"
	MappingError = "ERROR"
)

// StageFlowClosed is the terminal lifecycle stage; cases parked there no
// longer count for duplicate detection.
const StageFlowClosed = "Flow"

// AllocationFile is one uploaded batch of loan cases for a product
// assignment and monthly cycle.
type AllocationFile struct {
	AllocationFileID    string     `json:"allocation_file_id" db:"allocation_file_id"`
	Title               string     `json:"title" db:"title"`
	FileURL             string     `json:"file_url" db:"file_url"`
	InitialFileURL      string     `json:"initial_file_url" db:"initial_file_url"`
	LatestReuploadURL   *string    `json:"latest_reupload_file_url" db:"latest_reupload_file_url"`
	LatestErrorFileURL  *string    `json:"latest_error_file_url" db:"latest_error_file_url"`
	TotalRecords        int        `json:"no_of_total_records" db:"no_of_total_records"`
	ValidRecords        int        `json:"no_of_valid_records" db:"no_of_valid_records"`
	ErrorRecords        int        `json:"no_of_error_records" db:"no_of_error_records"`
	DuplicateRecords    int        `json:"no_of_duplicate_records" db:"no_of_duplicate_records"`
	ExpiryDate          *time.Time `json:"expiry_date" db:"expiry_date"`
	AllocationStatus    string     `json:"allocation_status" db:"allocation_status"`
	ProductAssignmentID string     `json:"product_assignment_id" db:"product_assignment_id"`
	CycleID             string     `json:"cycle_id" db:"cycle_id"`
	CreatedBy           string     `json:"created_by" db:"created_by"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// EffectiveStatus applies the read-time expiry override.
func (f *AllocationFile) EffectiveStatus(now time.Time) string {
	if f.ExpiryDate != nil && f.ExpiryDate.Before(now) {
		return StatusExpired
	}
	return f.AllocationStatus
}

// CaseReference is one folded multi-reference contact, assembled from the
// Reference-N file columns of a single logical template field.
type CaseReference struct {
	Title string `json:"title"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// CaseRow is one parsed data row, keyed by reserved field title. Fields
// holds the typed values produced by cell validation; Raw keeps the
// original cell text laid out in template column order for the
// error-report artifact.
type CaseRow struct {
	LoanAccountNumber string
	Fields            map[string]interface{}
	References        []CaseReference
	Raw               []string
}

// Amount returns the decimal value stored under a reserved title, or zero.
func (r *CaseRow) Amount(title string) decimal.Decimal {
	if v, ok := r.Fields[title].(decimal.Decimal); ok {
		return v
	}
	return decimal.Zero
}

// ErrorRow is a CaseRow that failed validation, carrying every reason
// accumulated for it during the pass.
type ErrorRow struct {
	Row     CaseRow  `json:"row"`
	Reasons []string `json:"reasons"`
}

// ReconcileResult is the two-way split produced by one reconciliation
// pass. A row never appears in both collections.
type ReconcileResult struct {
	ValidRows  []CaseRow
	ErrorRows  []ErrorRow
	Duplicates int
}

// Counters is the denormalized aggregate carried on the allocation file.
// TotalRecords == ValidRecords + ErrorRecords after every commit.
type Counters struct {
	TotalRecords     int `json:"no_of_total_records"`
	ValidRecords     int `json:"no_of_valid_records"`
	ErrorRecords     int `json:"no_of_error_records"`
	DuplicateRecords int `json:"no_of_duplicate_records"`
}
