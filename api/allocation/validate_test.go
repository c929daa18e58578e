package allocation

import (
	"testing"
	"time"

	"SigmaCollect/api/constants"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeadersSetMatch(t *testing.T) {
	tmpl := collectionsTemplate()

	// All required present, extras tolerated, order irrelevant.
	err := ValidateHeaders([]string{"Customer Name", "Loan Account No", "Branch Code"}, tmpl, HeaderSetMatch)
	assert.NoError(t, err)

	err = ValidateHeaders([]string{"Loan Account No"}, tmpl, HeaderSetMatch)
	assert.ErrorIs(t, err, ErrMissingRequiredHeaders)
}

func TestValidateHeadersMissingReportsOnce(t *testing.T) {
	tmpl := collectionsTemplate()

	// Both required headers absent still yields the single sentinel.
	err := ValidateHeaders([]string{"Total Loan Amount"}, tmpl, HeaderSetMatch)
	assert.ErrorIs(t, err, ErrMissingRequiredHeaders)
}

func TestValidateHeadersStrict(t *testing.T) {
	tmpl := collectionsTemplate()

	err := ValidateHeaders([]string{"Loan Account No", "Customer Name"}, tmpl, HeaderStrict)
	assert.NoError(t, err)

	err = ValidateHeaders([]string{"Loan Account No", "Customer Name", "Branch Code"}, tmpl, HeaderStrict)
	assert.ErrorIs(t, err, ErrUnexpectedHeaders)
}

func TestValidateHeadersExactOrder(t *testing.T) {
	tmpl := collectionsTemplate()
	expanded := tmpl.ExpandedHeaders()

	assert.NoError(t, ValidateHeaders(expanded, tmpl, HeaderExactOrder))

	swapped := make([]string, len(expanded))
	copy(swapped, expanded)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.ErrorIs(t, ValidateHeaders(swapped, tmpl, HeaderExactOrder), ErrHeaderOrderMismatch)

	assert.ErrorIs(t, ValidateHeaders(expanded[:3], tmpl, HeaderExactOrder), ErrHeaderOrderMismatch)
}

func TestParseCellEmptyCells(t *testing.T) {
	required := &TemplateField{Title: "loan_account_number", Required: true, DataType: constants.TypeString}
	optional := &TemplateField{Title: "bucket", Required: false, DataType: constants.TypeString}

	_, err := ParseCell(required, "   ")
	assert.Error(t, err)

	v, err := ParseCell(optional, "")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseCellTypes(t *testing.T) {
	tests := []struct {
		name     string
		dataType string
		format   string
		raw      string
		want     interface{}
		wantErr  bool
	}{
		{name: "string", dataType: constants.TypeString, raw: " LN001 ", want: "LN001"},
		{name: "integer", dataType: constants.TypeInteger, raw: "45", want: int64(45)},
		{name: "integer bad", dataType: constants.TypeInteger, raw: "45.5", wantErr: true},
		{name: "decimal", dataType: constants.TypeDecimal, raw: "1500.75", want: decimal.NewFromFloat(1500.75)},
		{name: "decimal bad", dataType: constants.TypeDecimal, raw: "abc", wantErr: true},
		{name: "boolean yes", dataType: constants.TypeBoolean, raw: "Yes", want: true},
		{name: "boolean zero", dataType: constants.TypeBoolean, raw: "0", want: false},
		{name: "boolean bad", dataType: constants.TypeBoolean, raw: "maybe", wantErr: true},
		{name: "date default", dataType: constants.TypeDate, raw: "2026-01-15",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "date custom format", dataType: constants.TypeDate, format: "02-01-2006", raw: "15-01-2026",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "date wrong format", dataType: constants.TypeDate, raw: "15/01/2026", wantErr: true},
		{name: "duration", dataType: constants.TypeDuration, raw: "09:30:00",
			want: 9*time.Hour + 30*time.Minute},
		{name: "duration bad minutes", dataType: constants.TypeDuration, raw: "09:75:00", wantErr: true},
		{name: "unknown type", dataType: "geo", raw: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := &TemplateField{Title: "f", DataType: tt.dataType, Format: tt.format}
			got, err := ParseCell(field, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
