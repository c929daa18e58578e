package allocation

import (
	"context"
	"os"
	"testing"
	"time"

	"SigmaCollect/api/constants"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The writer tests run against a real database with scripts/schema.sql
// applied. Point TEST_DATABASE_URL at one to enable them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedCycle(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	cycleID := uuid.New().String()
	start := time.Now().AddDate(0, 0, -1)
	_, err := pool.Exec(ctx, `
		INSERT INTO monthly_cycles (cycle_id, label, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, 'OPEN')`,
		cycleID, "test-"+cycleID[:8], start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM case_management_cases WHERE allocation_file_id IN
			(SELECT allocation_file_id FROM allocation_files WHERE cycle_id = $1)`, cycleID)
		pool.Exec(ctx, `DELETE FROM allocation_files WHERE cycle_id = $1`, cycleID)
		pool.Exec(ctx, `DELETE FROM monthly_cycles WHERE cycle_id = $1`, cycleID)
	})
	return cycleID
}

func testAllocationFile(cycleID string) *AllocationFile {
	id := uuid.New().String()
	return &AllocationFile{
		AllocationFileID:    id,
		Title:               "writer-test-" + id[:8],
		FileURL:             "https://files.example.com/" + id + ".xlsx",
		ProductAssignmentID: uuid.New().String(),
		CycleID:             cycleID,
		CreatedBy:           "tester",
	}
}

func savedRow(acc, amount string) CaseRow {
	amt, _ := decimal.NewFromString(amount)
	return CaseRow{
		LoanAccountNumber: acc,
		Fields: map[string]interface{}{
			constants.FieldCustomerName:    "Asha Verma",
			constants.FieldTotalLoanAmount: amt,
		},
		Raw: []string{acc, "Asha Verma", amount, "", "", ""},
	}
}

func failedRow(acc string) ErrorRow {
	return ErrorRow{
		Row: CaseRow{
			LoanAccountNumber: acc,
			Fields:            map[string]interface{}{constants.FieldCustomerName: "Asha Verma"},
			Raw:               []string{acc, "Asha Verma", "bad-amount", "", "", ""},
		},
		Reasons: []string{InvalidDataTypeReason(constants.FieldTotalLoanAmount)},
	}
}

func TestMaterializeUploadCountersBalance(t *testing.T) {
	pool := testPool(t)
	cycleID := seedCycle(t, pool)
	w := NewWriter(pool)
	ctx := context.Background()

	file := testAllocationFile(cycleID)
	counters, err := w.MaterializeUpload(ctx, file, &ReconcileResult{
		ValidRows: []CaseRow{savedRow("WLN001", "1200"), savedRow("WLN002", "900")},
		ErrorRows: []ErrorRow{failedRow("WLN003")},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, counters.TotalRecords)
	assert.Equal(t, 2, counters.ValidRecords)
	assert.Equal(t, 1, counters.ErrorRecords)
	assert.Equal(t, counters.TotalRecords, counters.ValidRecords+counters.ErrorRecords)

	var status string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT allocation_status FROM allocation_files WHERE allocation_file_id = $1`,
		file.AllocationFileID).Scan(&status))
	assert.Equal(t, StatusInProgress, status)

	errAccounts, err := LoadErrorAccounts(ctx, pool, file.AllocationFileID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"WLN003": true}, errAccounts)
}

func TestMaterializeReuploadCorrectionLifecycle(t *testing.T) {
	pool := testPool(t)
	cycleID := seedCycle(t, pool)
	w := NewWriter(pool)
	ctx := context.Background()

	file := testAllocationFile(cycleID)
	_, err := w.MaterializeUpload(ctx, file, &ReconcileResult{
		ValidRows: []CaseRow{savedRow("WLN101", "1200")},
		ErrorRows: []ErrorRow{failedRow("WLN102"), failedRow("WLN103")},
	})
	require.NoError(t, err)

	// First correction fixes one row; the other still fails.
	counters, err := w.MaterializeReupload(ctx, file.AllocationFileID,
		"https://files.example.com/re1.xlsx", &ReconcileResult{
			ValidRows: []CaseRow{savedRow("WLN102", "640")},
			ErrorRows: []ErrorRow{failedRow("WLN103")},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, counters.TotalRecords)
	assert.Equal(t, 2, counters.ValidRecords)
	assert.Equal(t, 1, counters.ErrorRecords)

	// Replaying the identical correction file changes nothing: the
	// already-corrected case is no longer in ERROR, so it cannot flip
	// or count twice.
	replayed, err := w.MaterializeReupload(ctx, file.AllocationFileID,
		"https://files.example.com/re1.xlsx", &ReconcileResult{
			ValidRows: []CaseRow{savedRow("WLN102", "640")},
			ErrorRows: []ErrorRow{failedRow("WLN103")},
		})
	require.NoError(t, err)
	assert.Equal(t, counters, replayed)

	// Correcting the last error completes the file.
	final, err := w.MaterializeReupload(ctx, file.AllocationFileID,
		"https://files.example.com/re2.xlsx", &ReconcileResult{
			ValidRows: []CaseRow{savedRow("WLN103", "310")},
		})
	require.NoError(t, err)
	assert.Zero(t, final.ErrorRecords)
	assert.Equal(t, 3, final.ValidRecords)
	assert.Equal(t, final.TotalRecords, final.ValidRecords+final.ErrorRecords)

	var status, reuploadURL string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT allocation_status, latest_reupload_file_url FROM allocation_files
		 WHERE allocation_file_id = $1`,
		file.AllocationFileID).Scan(&status, &reuploadURL))
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "https://files.example.com/re2.xlsx", reuploadURL)

	// A completed file has nothing left to correct.
	_, err = w.MaterializeReupload(ctx, file.AllocationFileID,
		"https://files.example.com/re3.xlsx", &ReconcileResult{})
	assert.ErrorIs(t, err, ErrNoErrorRecordsToCorrect)
}

func TestMaterializeReuploadUnknownFile(t *testing.T) {
	pool := testPool(t)
	w := NewWriter(pool)

	_, err := w.MaterializeReupload(context.Background(), uuid.New().String(),
		"https://files.example.com/re.xlsx", &ReconcileResult{})
	assert.ErrorIs(t, err, ErrIncorrectAllocationFileID)
}
