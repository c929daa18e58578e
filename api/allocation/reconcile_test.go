package allocation

import (
	"testing"

	"SigmaCollect/api/constants"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullUploadEngine(live map[string]bool) *Engine {
	return &Engine{
		Template:     collectionsTemplate(),
		Mode:         ModeFullUpload,
		LiveAccounts: live,
	}
}

func tableWithHeader(rows ...[]string) [][]string {
	tmpl := collectionsTemplate()
	table := [][]string{tmpl.ExpandedHeaders()}
	return append(table, rows...)
}

func TestReconcileValidRow(t *testing.T) {
	e := fullUploadEngine(nil)
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma", "1500.50", "Ravi", "9876543210", "2026-02-01"},
	))

	require.Len(t, res.ValidRows, 1)
	assert.Empty(t, res.ErrorRows)
	assert.Zero(t, res.Duplicates)

	row := res.ValidRows[0]
	assert.Equal(t, "LN001", row.LoanAccountNumber)
	assert.Equal(t, "Asha Verma", row.Fields[constants.FieldCustomerName])
	assert.True(t, decimal.NewFromFloat(1500.50).Equal(row.Amount(constants.FieldTotalLoanAmount)))
}

func TestReconcileMultiRefFanIn(t *testing.T) {
	e := fullUploadEngine(nil)
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma", "", "Ravi", "9876543210", ""},
	))

	require.Len(t, res.ValidRows, 1)
	refs := res.ValidRows[0].References
	require.Len(t, refs, 2)
	assert.Equal(t, "reference_name", refs[0].Title)
	assert.Equal(t, "Ravi", refs[0].Value)
	assert.Equal(t, "reference_phone", refs[1].Title)
	assert.Equal(t, "9876543210", refs[1].Value)
}

func TestReconcileRowIsAllOrNothing(t *testing.T) {
	e := fullUploadEngine(nil)
	// Amount is unparseable; the row's other fields are fine but the row
	// still lands on the error side.
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma", "not-a-number", "", "", ""},
	))

	assert.Empty(t, res.ValidRows)
	require.Len(t, res.ErrorRows, 1)
	assert.Contains(t, res.ErrorRows[0].Reasons,
		InvalidDataTypeReason(constants.FieldTotalLoanAmount))
}

func TestReconcileIntraFileDuplicateFlagsEveryOccurrence(t *testing.T) {
	e := fullUploadEngine(nil)
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma", "", "", "", ""},
		[]string{"LN002", "Vikram Rao", "", "", "", ""},
		[]string{"LN001", "Asha V", "", "", "", ""},
	))

	require.Len(t, res.ValidRows, 1)
	assert.Equal(t, "LN002", res.ValidRows[0].LoanAccountNumber)

	require.Len(t, res.ErrorRows, 2)
	for _, er := range res.ErrorRows {
		assert.Equal(t, "LN001", er.Row.LoanAccountNumber)
		assert.Contains(t, er.Reasons, ReasonDuplicateInFile)
	}
	assert.Equal(t, 2, res.Duplicates)
}

func TestReconcileCrossFileDuplicate(t *testing.T) {
	e := fullUploadEngine(map[string]bool{"LN009": true})
	res := e.Reconcile(tableWithHeader(
		[]string{"LN009", "Asha Verma", "", "", "", ""},
		[]string{"LN010", "Vikram Rao", "", "", "", ""},
	))

	require.Len(t, res.ValidRows, 1)
	require.Len(t, res.ErrorRows, 1)
	assert.Contains(t, res.ErrorRows[0].Reasons, ReasonDuplicateLoanAcc)
	assert.Equal(t, 1, res.Duplicates)
}

func TestReconcileCorrectionModeRejectsUnknownIdentifiers(t *testing.T) {
	e := &Engine{
		Template:      collectionsTemplate(),
		Mode:          ModeCorrection,
		ErrorAccounts: map[string]bool{"LN001": true},
	}
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma", "1200", "", "", ""},
		[]string{"LN777", "Stranger", "", "", "", ""},
		[]string{"", "No Account", "", "", "", ""},
	))

	require.Len(t, res.ValidRows, 1)
	assert.Equal(t, "LN001", res.ValidRows[0].LoanAccountNumber)

	require.Len(t, res.ErrorRows, 2)
	for _, er := range res.ErrorRows {
		assert.Contains(t, er.Reasons, ReasonUnexpectedOrMissed)
	}
	assert.Zero(t, res.Duplicates)
}

func TestReconcileSkipsBlankRows(t *testing.T) {
	e := fullUploadEngine(nil)
	res := e.Reconcile(tableWithHeader(
		[]string{"", "", "", "", "", ""},
		[]string{"LN001", "Asha Verma", "", "", "", ""},
	))

	assert.Len(t, res.ValidRows, 1)
	assert.Empty(t, res.ErrorRows)
}

func TestReconcileRawFollowsTemplateOrder(t *testing.T) {
	e := fullUploadEngine(nil)
	// Set-match accepts a file whose columns are shuffled relative to
	// the template; the raw cells must still land under their template
	// positions.
	res := e.Reconcile([][]string{
		{"Customer Name", "Loan Account No", "Total Loan Amount"},
		{"Asha Verma", "LN001", "bad-amount"},
	})

	require.Len(t, res.ErrorRows, 1)
	raw := res.ErrorRows[0].Row.Raw
	require.Len(t, raw, 6)
	assert.Equal(t, "LN001", raw[0])
	assert.Equal(t, "Asha Verma", raw[1])
	assert.Equal(t, "bad-amount", raw[2])
}

func TestReconcileRawDropsColumnsOutsideTemplate(t *testing.T) {
	e := fullUploadEngine(nil)
	res := e.Reconcile([][]string{
		{"Loan Account No", "Agency Remark", "Customer Name"},
		{"LN001", "escalated", "Asha Verma"},
	})

	require.Len(t, res.ValidRows, 1)
	raw := res.ValidRows[0].Raw
	require.Len(t, raw, 6)
	assert.Equal(t, "LN001", raw[0])
	assert.Equal(t, "Asha Verma", raw[1])
	assert.NotContains(t, raw, "escalated")
}

func TestReconcileShortRowsArePadded(t *testing.T) {
	e := fullUploadEngine(nil)
	// CSV readers return ragged rows; trailing columns read as empty.
	res := e.Reconcile(tableWithHeader(
		[]string{"LN001", "Asha Verma"},
	))

	require.Len(t, res.ValidRows, 1)
	assert.Len(t, res.ValidRows[0].Raw, 6)
}
