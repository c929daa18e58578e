package allocation

import (
	"testing"

	"SigmaCollect/api/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectionsTemplate() *Template {
	return &Template{
		TemplateID:          "tmpl-1",
		Title:               "Default Collections Layout",
		ProductAssignmentID: "pa-1",
		Fields: []TemplateField{
			{
				FieldMappingID: "fm-1",
				Title:          constants.FieldLoanAccountNumber,
				Label:          "Loan Account No",
				Required:       true,
				Position:       1,
				DataType:       constants.TypeString,
			},
			{
				FieldMappingID: "fm-2",
				Title:          constants.FieldCustomerName,
				Label:          "Customer Name",
				Required:       true,
				Position:       2,
				DataType:       constants.TypeString,
			},
			{
				FieldMappingID: "fm-3",
				Title:          constants.FieldTotalLoanAmount,
				Label:          "Total Loan Amount",
				Required:       false,
				Position:       3,
				DataType:       constants.TypeDecimal,
			},
			{
				FieldMappingID: "fm-4",
				Title:          constants.FieldReference,
				Label:          "References",
				Required:       false,
				Position:       4,
				DataType:       constants.TypeString,
				IsMultiRef:     true,
				MultiRefLabels: []MultiRefLabel{
					{Title: "reference_name", Label: "Reference 1 Name"},
					{Title: "reference_phone", Label: "Reference 1 Phone"},
				},
			},
			{
				FieldMappingID: "fm-5",
				Title:          constants.FieldDueDate,
				Label:          "Due Date",
				Required:       false,
				Position:       5,
				DataType:       constants.TypeDate,
			},
		},
	}
}

func TestExpandedHeadersFansOutMultiRef(t *testing.T) {
	tmpl := collectionsTemplate()
	assert.Equal(t, []string{
		"Loan Account No",
		"Customer Name",
		"Total Loan Amount",
		"Reference 1 Name",
		"Reference 1 Phone",
		"Due Date",
	}, tmpl.ExpandedHeaders())
}

func TestRequiredHeaders(t *testing.T) {
	tmpl := collectionsTemplate()
	assert.Equal(t, []string{"Loan Account No", "Customer Name"}, tmpl.RequiredHeaders())
}

func TestRequiredHeadersNoneRequired(t *testing.T) {
	tmpl := collectionsTemplate()
	for i := range tmpl.Fields {
		tmpl.Fields[i].Required = false
	}
	assert.Empty(t, tmpl.RequiredHeaders())
}

func TestFieldForHeader(t *testing.T) {
	tmpl := collectionsTemplate()

	field, child := tmpl.FieldForHeader("Customer Name")
	require.NotNil(t, field)
	assert.Nil(t, child)
	assert.Equal(t, constants.FieldCustomerName, field.Title)

	field, child = tmpl.FieldForHeader("Reference 1 Phone")
	require.NotNil(t, field)
	require.NotNil(t, child)
	assert.Equal(t, constants.FieldReference, field.Title)
	assert.Equal(t, "reference_phone", child.Title)

	field, child = tmpl.FieldForHeader("Unknown Column")
	assert.Nil(t, field)
	assert.Nil(t, child)
}

func TestTemplateValidate(t *testing.T) {
	tmpl := collectionsTemplate()
	require.NoError(t, tmpl.Validate())

	tmpl.Fields[1].Title = "customer_nickname"
	err := tmpl.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer_nickname")
}

func TestLoanAccountHeader(t *testing.T) {
	tmpl := collectionsTemplate()
	assert.Equal(t, "Loan Account No", tmpl.LoanAccountHeader())

	empty := &Template{}
	assert.Equal(t, "", empty.LoanAccountHeader())
}
