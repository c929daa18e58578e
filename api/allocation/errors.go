package allocation

import (
	"errors"
	"fmt"
)

// Fetch/parse failures abort the whole operation before any row work.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format: only .xlsx, .xls and .csv are accepted")
	ErrFileAccess        = errors.New("could not download the allocation file")
	ErrFileRead          = errors.New("could not read the allocation file contents")
	ErrEmptyFile         = errors.New("allocation file has no data rows")
)

// Schema failures: rows cannot be interpreted against an unknown layout.
var (
	ErrMissingRequiredHeaders = errors.New("file is missing required headers for the assigned template")
	ErrUnexpectedHeaders      = errors.New("file contains headers not present in the assigned template")
	ErrHeaderOrderMismatch    = errors.New("file headers are not in the template order")
)

// Template registry failures.
var ErrNoTemplateConfigured = errors.New("no default template is configured for this product assignment")

// Re-upload preconditions.
var (
	ErrIncorrectAllocationFileID = errors.New("allocation file not found")
	ErrNoErrorRecordsToCorrect   = errors.New("allocation file has no error records to correct")
	ErrAllocationFileExpired     = errors.New("allocation file has expired; re-upload is not allowed")
)

// ErrPersistence wraps a database failure inside the cycle transaction.
// The whole cycle is rolled back and the cause surfaced once.
var ErrPersistence = errors.New("failed to persist allocation cycle")

// Row-level error reasons. These are accumulated per row, never thrown;
// they end up in the error-report artifact verbatim.
const (
	ReasonInvalidDataType    = "InvalidDataType"
	ReasonDuplicateInFile    = "DuplicateInFile"
	ReasonDuplicateLoanAcc   = "DuplicateLoanAccountNumber"
	ReasonUnexpectedOrMissed = "UnexpectedOrMissingIdentifier"
)

// InvalidDataTypeReason names the offending field in the stored reason.
func InvalidDataTypeReason(fieldTitle string) string {
	return fmt.Sprintf("%s: %s", ReasonInvalidDataType, fieldTitle)
}

// FieldError pairs a user-facing message with the request field it refers
// to; the entry points respond with this shape on validation failure.
type FieldError struct {
	Message string `json:"error_message"`
	Key     string `json:"key"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Key)
}
