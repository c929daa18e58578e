package constants

// Common error messages
const (
	ErrInvalidSession     = "invalid user_id or session"
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrMissingUserID      = "Missing or invalid user_id in body"
	ErrDB                 = "DB error"
	ErrInvalidRequestBody = "Invalid request body"
	ErrPleaseLogin        = "Please login to continue."
	ErrMethodNotAllowed   = "Method Not Allowed"
)

// DB / SQL error templates
const (
	ErrTxStartFailed  = "failed to start transaction: "
	ErrTxCommitFailed = "failed to commit transaction: "
	ErrQueryFailed    = "query failed: "
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)

// Reserved field vocabulary. A template field mapping's title must be one
// of these; the label is what appears as the file column header.
const (
	FieldLoanAccountNumber = "loan_account_number"
	FieldCustomerName      = "customer_name"
	FieldTotalLoanAmount   = "total_loan_amount"
	FieldMinimumDueAmount  = "minimum_due_amount"
	FieldCurrentDPD        = "current_dpd"
	FieldDueDate           = "due_date"
	FieldBucket            = "bucket"
	FieldRisk              = "risk"
	FieldResidentialPin    = "residential_pincode"
	FieldOfficePin         = "office_pincode"
	FieldCustomerPhone     = "customer_phone"
	FieldCustomerEmail     = "customer_email"
	FieldAddress           = "address"
	FieldBranch            = "branch"
	FieldReference         = "reference"
	FieldCallWindow        = "call_window"
	FieldLastPaymentDate   = "last_payment_date"
	FieldPromiseToPay      = "promise_to_pay"
)

// ReservedFields lists the full vocabulary for configuration validation.
var ReservedFields = []string{
	FieldLoanAccountNumber,
	FieldCustomerName,
	FieldTotalLoanAmount,
	FieldMinimumDueAmount,
	FieldCurrentDPD,
	FieldDueDate,
	FieldBucket,
	FieldRisk,
	FieldResidentialPin,
	FieldOfficePin,
	FieldCustomerPhone,
	FieldCustomerEmail,
	FieldAddress,
	FieldBranch,
	FieldReference,
	FieldCallWindow,
	FieldLastPaymentDate,
	FieldPromiseToPay,
}

// IsReservedField reports whether a title belongs to the reserved
// vocabulary.
func IsReservedField(title string) bool {
	for _, f := range ReservedFields {
		if f == title {
			return true
		}
	}
	return false
}

// Data type tags carried on template field mappings. Each tag has one
// validation function in the allocation pipeline.
const (
	TypeString   = "string"
	TypeInteger  = "integer"
	TypeDecimal  = "decimal"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDateTime = "datetime"
	TypeDuration = "duration"
)
