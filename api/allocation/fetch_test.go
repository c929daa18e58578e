package allocation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func csvServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileExt(t *testing.T) {
	assert.Equal(t, ".csv", FileExt("https://cdn.example.com/files/batch.CSV"))
	assert.Equal(t, ".xlsx", FileExt("https://cdn.example.com/a/b/jan.xlsx?sig=abc"))
	assert.Equal(t, "", FileExt("https://cdn.example.com/files/batch"))
}

func TestFetchTableRejectsExtensionBeforeNetwork(t *testing.T) {
	// The host does not resolve; an extension failure must short-circuit
	// before any download attempt.
	_, err := FetchTable(context.Background(), "http://no-such-host.invalid/file.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFetchTableCSV(t *testing.T) {
	srv := csvServer(t, "Loan Account No,Customer Name\nLN001,Asha Verma\nLN002,Vikram Rao\n")

	rows, err := FetchTable(context.Background(), srv.URL+"/batch.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Loan Account No", "Customer Name"}, rows[0])
	assert.Equal(t, []string{"LN002", "Vikram Rao"}, rows[2])
}

func TestFetchTableEmptyFile(t *testing.T) {
	srv := csvServer(t, "Loan Account No,Customer Name\n")

	_, err := FetchTable(context.Background(), srv.URL+"/batch.csv")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestFetchTableHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := FetchTable(context.Background(), srv.URL+"/batch.csv")
	assert.ErrorIs(t, err, ErrFileAccess)
}

func TestFetchTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Loan Account No", "Customer Name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"LN001", "Asha Verma"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	rows, err := FetchTable(context.Background(), srv.URL+"/batch.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"LN001", "Asha Verma"}, rows[1])
}

func TestFetchHeaders(t *testing.T) {
	srv := csvServer(t, " Loan Account No ,Customer Name\nLN001,Asha Verma\n")

	headers, err := FetchHeaders(context.Background(), srv.URL+"/batch.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Loan Account No", "Customer Name"}, headers)
}

func TestFetchColumn(t *testing.T) {
	srv := csvServer(t, "Loan Account No,Customer Name\nLN001,Asha Verma\n,Missing Acc\nLN003,Vikram Rao\n")

	values, err := FetchColumn(context.Background(), srv.URL+"/batch.csv", "Loan Account No", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"LN001", "LN003"}, values)

	values, err = FetchColumn(context.Background(), srv.URL+"/batch.csv", "Loan Account No", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"LN001", "", "LN003"}, values)

	_, err = FetchColumn(context.Background(), srv.URL+"/batch.csv", "Branch", true)
	assert.ErrorIs(t, err, ErrFileRead)
}
