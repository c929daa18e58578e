package allocation

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memoryStore struct {
	key  string
	data []byte
}

func (m *memoryStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.key = key
	m.data = data
	return "https://artifacts.example.com/" + key, nil
}

func TestBuildErrorReport(t *testing.T) {
	tmpl := collectionsTemplate()
	errorRows := []ErrorRow{
		{
			Row: CaseRow{
				LoanAccountNumber: "LN001",
				Raw:               []string{"LN001", "Asha Verma", "bad-amount", "", "", ""},
			},
			Reasons: []string{InvalidDataTypeReason("total_loan_amount"), ReasonDuplicateInFile},
		},
	}

	data, err := BuildErrorReport(tmpl, errorRows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	wantHeader := append(tmpl.ExpandedHeaders(), "Errors")
	assert.Equal(t, wantHeader, rows[0])
	assert.Equal(t, "LN001", rows[1][0])
	assert.Equal(t, "bad-amount", rows[1][2])
	assert.Equal(t, "InvalidDataType: total_loan_amount; DuplicateInFile", rows[1][len(rows[1])-1])
}

func TestBuildErrorReportFromShuffledFileColumns(t *testing.T) {
	tmpl := collectionsTemplate()
	headers := []string{"Customer Name", "Loan Account No", "Total Loan Amount"}
	require.NoError(t, ValidateHeaders(headers, tmpl, HeaderSetMatch))

	e := &Engine{Template: tmpl, Mode: ModeFullUpload}
	res := e.Reconcile([][]string{headers, {"Asha Verma", "LN001", "bad-amount"}})
	require.Len(t, res.ErrorRows, 1)

	data, err := BuildErrorReport(tmpl, res.ErrorRows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Values follow the report's header order, not the uploaded file's.
	assert.Equal(t, "Loan Account No", rows[0][0])
	assert.Equal(t, "LN001", rows[1][0])
	assert.Equal(t, "Asha Verma", rows[1][1])
	assert.Equal(t, "bad-amount", rows[1][2])
}

func TestGenerateErrorFile(t *testing.T) {
	tmpl := collectionsTemplate()
	store := &memoryStore{}

	url, err := GenerateErrorFile(context.Background(), store, tmpl, "af-1", []ErrorRow{
		{Row: CaseRow{Raw: []string{"LN001"}}, Reasons: []string{ReasonDuplicateInFile}},
	})
	require.NoError(t, err)
	assert.Contains(t, url, "allocation/errors/af-1_")
	assert.NotEmpty(t, store.data)
	assert.Contains(t, store.key, "af-1")
}
