package constants

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrMissingUserIDField = "user_id is required in the request"
	ErrSessionInvalid     = "Your session has expired or is invalid. Please login again"
	ErrUnauthorized       = "You are not authorized to perform this action"
	ErrUserNotFound       = "User not found in the system"
)

// ============================================================================
// VALIDATION ERRORS - Allocation File
// ============================================================================

const (
	ErrAllocationFileNameRequired = "file_name is required"
	ErrAllocationFileURLRequired  = "file_url is required"
	ErrAllocationFileNameTaken    = "An allocation file with this name already exists"
	ErrAllocationFileNotFound     = "Allocation file not found. Please check the allocation_file_id"
	ErrAllocationFileExpired      = "This allocation file has expired and can no longer be corrected"
	ErrNoErrorRecords             = "This allocation file has no error records to correct"
	ErrAllocationUploadFailed     = "Failed to process the allocation file. No records were saved"
)

// ============================================================================
// VALIDATION ERRORS - Template Configuration
// ============================================================================

const (
	ErrNoDefaultTemplate     = "No default template is configured for this product assignment. Please contact administrator"
	ErrTemplateFieldUnknown  = "Template field title is not part of the reserved field vocabulary"
	ErrTemplateFieldsMissing = "The uploaded file does not match the template. Please download the template and re-check the headers"
)

// ============================================================================
// VALIDATION ERRORS - Product / Cycle targeting
// ============================================================================

const (
	ErrProductAssignmentRequired = "product_assignment_id is required"
	ErrProductAssignmentInvalid  = "Invalid product assignment specified"
	ErrNoOpenCycle               = "No open monthly cycle found. Please contact administrator"
	ErrCycleClosed               = "The targeted monthly cycle is closed"
)

// ============================================================================
// VALIDATION ERRORS - Case Management
// ============================================================================

const (
	ErrNoCases              = "No cases found for the given allocation file"
	ErrCaseNotFound         = "Case not found or you don't have access to it"
	ErrCaseIDsRequired      = "case_ids are required"
	ErrFieldOfficerRequired = "field_officer_id is required"
	ErrCaseAssignFailed     = "Failed to assign cases. Please verify the case ids and try again"
	ErrCaseClosedStage      = "Case is in a terminal stage and cannot be updated"
)

// ============================================================================
// STORAGE / ARTIFACT ERRORS
// ============================================================================

const (
	ErrErrorFileGeneration = "Failed to generate the error report file"
	ErrErrorFileUpload     = "Failed to store the error report file"
)
