package allocation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"SigmaCollect/api/constants"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Writer persists reconciliation output. All row writes and the parent
// counter update for one cycle happen inside a single transaction; a
// database failure rolls the whole cycle back and surfaces ErrPersistence.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LoadLiveAccounts returns which of the candidate identifiers already have
// a live case: not in ERROR state and not parked in the terminal Flow
// stage. Those are cross-file duplicates for a fresh upload.
func LoadLiveAccounts(ctx context.Context, pool *pgxpool.Pool, accounts []string) (map[string]bool, error) {
	live := make(map[string]bool)
	if len(accounts) == 0 {
		return live, nil
	}
	rows, err := pool.Query(ctx, `
		SELECT loan_account_number
		FROM case_management_cases
		WHERE loan_account_number = ANY($1)
		  AND field_mapping_status != $2
		  AND lifecycle_stage != $3
	`, accounts, MappingError, StageFlowClosed)
	if err != nil {
		return nil, fmt.Errorf("live account query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return nil, fmt.Errorf("live account scan failed: %w", err)
		}
		live[acc] = true
	}
	return live, rows.Err()
}

// LoadErrorAccounts returns the allocation file's known ERROR identifier
// set, the only rows a correction cycle may touch.
func LoadErrorAccounts(ctx context.Context, pool *pgxpool.Pool, allocationFileID string) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `
		SELECT loan_account_number
		FROM case_management_cases
		WHERE allocation_file_id = $1 AND field_mapping_status = $2
	`, allocationFileID, MappingError)
	if err != nil {
		return nil, fmt.Errorf("error account query failed: %w", err)
	}
	defer rows.Close()
	set := make(map[string]bool)
	for rows.Next() {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return nil, fmt.Errorf("error account scan failed: %w", err)
		}
		set[acc] = true
	}
	return set, rows.Err()
}

// caseColumns are the fixed case table columns fed from reserved fields;
// everything else lands in extra_fields.
var fixedTitles = map[string]bool{
	constants.FieldLoanAccountNumber: true,
	constants.FieldCustomerName:      true,
	constants.FieldTotalLoanAmount:   true,
	constants.FieldMinimumDueAmount:  true,
	constants.FieldCurrentDPD:        true,
	constants.FieldDueDate:           true,
	constants.FieldBucket:            true,
	constants.FieldRisk:              true,
	constants.FieldResidentialPin:    true,
	constants.FieldOfficePin:         true,
}

func stringField(row *CaseRow, title string) *string {
	if v, ok := row.Fields[title].(string); ok && v != "" {
		return &v
	}
	return nil
}

func decimalField(row *CaseRow, title string) *string {
	if v, ok := row.Fields[title].(decimal.Decimal); ok {
		s := v.String()
		return &s
	}
	return nil
}

func intField(row *CaseRow, title string) *int64 {
	if v, ok := row.Fields[title].(int64); ok {
		return &v
	}
	return nil
}

func timeField(row *CaseRow, title string) *time.Time {
	if v, ok := row.Fields[title].(time.Time); ok {
		return &v
	}
	return nil
}

// extraFieldsJSON serializes reserved values outside the fixed columns.
// Durations stringify so the JSON stays human-readable.
func extraFieldsJSON(row *CaseRow) (*string, error) {
	extras := make(map[string]interface{})
	for title, v := range row.Fields {
		if fixedTitles[title] {
			continue
		}
		if d, ok := v.(time.Duration); ok {
			extras[title] = d.String()
			continue
		}
		extras[title] = v
	}
	if len(extras) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(extras)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func referencesJSON(row *CaseRow) (*string, error) {
	if len(row.References) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(row.References)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

const insertCaseSQL = `
	INSERT INTO case_management_cases
		(case_id, allocation_file_id, loan_account_number, customer_name,
		 total_loan_amount, minimum_due_amount, current_dpd, due_date,
		 bucket, risk, residential_pincode, office_pincode,
		 field_mapping_status, lifecycle_stage, case_references,
		 extra_fields, error_reasons, raw_values, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())`

func queueCaseInsert(batch *pgx.Batch, allocationFileID string, row *CaseRow, status string, reasons []string) error {
	extras, err := extraFieldsJSON(row)
	if err != nil {
		return err
	}
	refs, err := referencesJSON(row)
	if err != nil {
		return err
	}
	var reasonArr []string
	var rawArr []string
	if status == MappingError {
		reasonArr = reasons
		rawArr = row.Raw
	}
	batch.Queue(insertCaseSQL,
		uuid.New().String(), allocationFileID, row.LoanAccountNumber,
		stringField(row, constants.FieldCustomerName),
		decimalField(row, constants.FieldTotalLoanAmount),
		decimalField(row, constants.FieldMinimumDueAmount),
		intField(row, constants.FieldCurrentDPD),
		timeField(row, constants.FieldDueDate),
		stringField(row, constants.FieldBucket),
		stringField(row, constants.FieldRisk),
		stringField(row, constants.FieldResidentialPin),
		stringField(row, constants.FieldOfficePin),
		status, "Allocated", refs, extras, reasonArr, rawArr)
	return nil
}

const updateCaseSQL = `
	UPDATE case_management_cases
	SET customer_name = COALESCE($3, customer_name),
	    total_loan_amount = COALESCE($4, total_loan_amount),
	    minimum_due_amount = COALESCE($5, minimum_due_amount),
	    current_dpd = COALESCE($6, current_dpd),
	    due_date = COALESCE($7, due_date),
	    bucket = COALESCE($8, bucket),
	    risk = COALESCE($9, risk),
	    residential_pincode = COALESCE($10, residential_pincode),
	    office_pincode = COALESCE($11, office_pincode),
	    case_references = COALESCE($12, case_references),
	    extra_fields = COALESCE($13, extra_fields),
	    field_mapping_status = $14,
	    error_reasons = $15,
	    raw_values = $16,
	    updated_at = now()
	WHERE allocation_file_id = $1 AND loan_account_number = $2
	  AND field_mapping_status = $17`

func queueCaseCorrection(batch *pgx.Batch, allocationFileID string, row *CaseRow, status string, reasons []string) error {
	extras, err := extraFieldsJSON(row)
	if err != nil {
		return err
	}
	refs, err := referencesJSON(row)
	if err != nil {
		return err
	}
	var reasonArr []string
	var rawArr []string
	if status == MappingError {
		reasonArr = reasons
		rawArr = row.Raw
	}
	batch.Queue(updateCaseSQL,
		allocationFileID, row.LoanAccountNumber,
		stringField(row, constants.FieldCustomerName),
		decimalField(row, constants.FieldTotalLoanAmount),
		decimalField(row, constants.FieldMinimumDueAmount),
		intField(row, constants.FieldCurrentDPD),
		timeField(row, constants.FieldDueDate),
		stringField(row, constants.FieldBucket),
		stringField(row, constants.FieldRisk),
		stringField(row, constants.FieldResidentialPin),
		stringField(row, constants.FieldOfficePin),
		refs, extras, status, reasonArr, rawArr, MappingError)
	return nil
}

func runBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return br.Close()
}

// recomputeCounters derives the denormalized aggregate from the case
// table inside the cycle transaction. Recomputing (instead of adjusting)
// keeps total == valid + error structurally true and makes replaying an
// identical correction file a no-op on the counts.
func recomputeCounters(ctx context.Context, tx pgx.Tx, allocationFileID string) (Counters, error) {
	var c Counters
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE field_mapping_status = $2),
		       COUNT(*) FILTER (WHERE field_mapping_status = $3)
		FROM case_management_cases
		WHERE allocation_file_id = $1
	`, allocationFileID, MappingSaved, MappingError).Scan(&c.TotalRecords, &c.ValidRecords, &c.ErrorRecords)
	return c, err
}

func statusForCounters(c Counters) string {
	if c.ErrorRecords == 0 {
		return StatusCompleted
	}
	return StatusInProgress
}

// MaterializeUpload persists a fresh allocation file and its reconciled
// rows atomically and returns the committed aggregate.
func (w *Writer) MaterializeUpload(ctx context.Context, file *AllocationFile, res *ReconcileResult) (Counters, error) {
	var counters Counters
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			log.Printf("[ERROR] rollback failed: %v", err)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_files
			(allocation_file_id, title, file_url, initial_file_url,
			 no_of_total_records, no_of_valid_records, no_of_error_records,
			 no_of_duplicate_records, expiry_date, allocation_status,
			 product_assignment_id, cycle_id, created_by, created_at)
		VALUES ($1,$2,$3,$3,0,0,0,0,$4,$5,$6,$7,$8,now())
	`, file.AllocationFileID, file.Title, file.FileURL, file.ExpiryDate,
		StatusInProgress, file.ProductAssignmentID, file.CycleID, file.CreatedBy)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	batch := &pgx.Batch{}
	for i := range res.ValidRows {
		if err := queueCaseInsert(batch, file.AllocationFileID, &res.ValidRows[i], MappingSaved, nil); err != nil {
			return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	for i := range res.ErrorRows {
		er := &res.ErrorRows[i]
		if err := queueCaseInsert(batch, file.AllocationFileID, &er.Row, MappingError, er.Reasons); err != nil {
			return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	if err := runBatch(ctx, tx, batch); err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	counters, err = recomputeCounters(ctx, tx, file.AllocationFileID)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	counters.DuplicateRecords = res.Duplicates

	_, err = tx.Exec(ctx, `
		UPDATE allocation_files
		SET no_of_total_records = $2, no_of_valid_records = $3,
		    no_of_error_records = $4, no_of_duplicate_records = $5,
		    allocation_status = $6
		WHERE allocation_file_id = $1
	`, file.AllocationFileID, counters.TotalRecords, counters.ValidRecords,
		counters.ErrorRecords, counters.DuplicateRecords, statusForCounters(counters))
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return counters, nil
}

// MaterializeReupload applies a correction cycle: corrected rows flip
// their ERROR case to SAVED, rows that still fail refresh their error
// annotations, and the counters are recomputed. The allocation_files row
// is locked FOR UPDATE for the duration so concurrent correction cycles
// against the same file serialize instead of double-counting.
//
// Rows rejected with UnexpectedOrMissingIdentifier have no case to
// update; they surface only through the error-report artifact.
func (w *Writer) MaterializeReupload(ctx context.Context, allocationFileID, reuploadURL string, res *ReconcileResult) (Counters, error) {
	var counters Counters
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			log.Printf("[ERROR] rollback failed: %v", err)
		}
	}()

	var currentErrors int
	err = tx.QueryRow(ctx, `
		SELECT no_of_error_records FROM allocation_files
		WHERE allocation_file_id = $1
		FOR UPDATE
	`, allocationFileID).Scan(&currentErrors)
	if err != nil {
		if err == pgx.ErrNoRows {
			return counters, ErrIncorrectAllocationFileID
		}
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if currentErrors == 0 {
		return counters, ErrNoErrorRecordsToCorrect
	}

	batch := &pgx.Batch{}
	for i := range res.ValidRows {
		if err := queueCaseCorrection(batch, allocationFileID, &res.ValidRows[i], MappingSaved, nil); err != nil {
			return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	for i := range res.ErrorRows {
		er := &res.ErrorRows[i]
		if hasReason(er.Reasons, ReasonUnexpectedOrMissed) {
			continue
		}
		if err := queueCaseCorrection(batch, allocationFileID, &er.Row, MappingError, er.Reasons); err != nil {
			return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	if err := runBatch(ctx, tx, batch); err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	counters, err = recomputeCounters(ctx, tx, allocationFileID)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	counters.DuplicateRecords = res.Duplicates

	_, err = tx.Exec(ctx, `
		UPDATE allocation_files
		SET no_of_total_records = $2, no_of_valid_records = $3,
		    no_of_error_records = $4, no_of_duplicate_records = $5,
		    allocation_status = $6, latest_reupload_file_url = $7
		WHERE allocation_file_id = $1
	`, allocationFileID, counters.TotalRecords, counters.ValidRecords,
		counters.ErrorRecords, counters.DuplicateRecords,
		statusForCounters(counters), reuploadURL)
	if err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return counters, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return counters, nil
}

// SetErrorFileURL records the generated error-report artifact. Runs after
// the cycle commit: the artifact is an output side-effect, not part of
// the row/counter invariant.
func (w *Writer) SetErrorFileURL(ctx context.Context, allocationFileID, errorFileURL string) error {
	_, err := w.pool.Exec(ctx, `
		UPDATE allocation_files SET latest_error_file_url = $2
		WHERE allocation_file_id = $1
	`, allocationFileID, errorFileURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func hasReason(reasons []string, reason string) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}
