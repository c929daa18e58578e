package allocation

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"SigmaCollect/api/constants"
	"SigmaCollect/internal/notification"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type reuploadRequest struct {
	UserID           string `json:"user_id"`
	AllocationFileID string `json:"allocation_file_id"`
	FileURL          string `json:"file_url"`
}

// ReuploadAllocationFile handles POST /allocation/reupload: the
// error-correction entry point. Only identifiers the target file
// previously marked ERROR are eligible; anything else is rejected row by
// row with UnexpectedOrMissingIdentifier. Correction cycles against an
// expired file are refused outright.
func ReuploadAllocationFile(pool *pgxpool.Pool, store ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		var req reuploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		userName := sessionUserName(req.UserID)
		if userName == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}
		if strings.TrimSpace(req.AllocationFileID) == "" {
			respondFieldError(w, http.StatusBadRequest, constants.ErrAllocationFileNotFound, "allocation_file_id")
			return
		}
		if strings.TrimSpace(req.FileURL) == "" {
			respondFieldError(w, http.StatusBadRequest, constants.ErrAllocationFileURLRequired, "file_url")
			return
		}
		if !allowedExtensions[FileExt(req.FileURL)] {
			respondFieldError(w, http.StatusBadRequest, ErrUnsupportedFormat.Error(), "file_url")
			return
		}

		var file AllocationFile
		err := pool.QueryRow(ctx, `
			SELECT allocation_file_id, title, product_assignment_id,
			       no_of_error_records, expiry_date, allocation_status
			FROM allocation_files
			WHERE allocation_file_id = $1
		`, req.AllocationFileID).Scan(&file.AllocationFileID, &file.Title,
			&file.ProductAssignmentID, &file.ErrorRecords, &file.ExpiryDate, &file.AllocationStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondFieldError(w, http.StatusNotFound, constants.ErrAllocationFileNotFound, "allocation_file_id")
				return
			}
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		if file.EffectiveStatus(time.Now()) == StatusExpired {
			respondFieldError(w, http.StatusBadRequest, constants.ErrAllocationFileExpired, "allocation_file_id")
			return
		}
		if file.ErrorRecords == 0 {
			respondFieldError(w, http.StatusBadRequest, constants.ErrNoErrorRecords, "allocation_file_id")
			return
		}

		tmpl, err := LoadDefaultTemplate(ctx, pool, file.ProductAssignmentID)
		if err != nil {
			if err == ErrNoTemplateConfigured {
				respondFieldError(w, http.StatusBadRequest, constants.ErrNoDefaultTemplate, "product_assignment_id")
				return
			}
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		table, err := FetchTable(ctx, req.FileURL)
		if err != nil {
			respondFieldError(w, http.StatusBadRequest, err.Error(), "file_url")
			return
		}
		if err := ValidateHeaders(table[0], tmpl, HeaderSetMatch); err != nil {
			respondFieldError(w, http.StatusBadRequest, err.Error(), "file_url")
			return
		}

		errorSet, err := LoadErrorAccounts(ctx, pool, file.AllocationFileID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		engine := &Engine{Template: tmpl, Mode: ModeCorrection, ErrorAccounts: errorSet}
		result := engine.Reconcile(table)

		writer := NewWriter(pool)
		counters, err := writer.MaterializeReupload(ctx, file.AllocationFileID, req.FileURL, result)
		if err != nil {
			switch {
			case errors.Is(err, ErrIncorrectAllocationFileID):
				respondFieldError(w, http.StatusNotFound, constants.ErrAllocationFileNotFound, "allocation_file_id")
			case errors.Is(err, ErrNoErrorRecordsToCorrect):
				respondFieldError(w, http.StatusBadRequest, constants.ErrNoErrorRecords, "allocation_file_id")
			default:
				respondWithError(w, http.StatusInternalServerError, constants.ErrAllocationUploadFailed)
			}
			return
		}

		errorFileURL := generateAndRecordErrorFile(ctx, writer, store, tmpl, file.AllocationFileID, result.ErrorRows)

		notification.Push("Allocation file " + file.Title + " corrected by " + userName)
		log.Printf("[INFO] allocation reupload %s: total=%d valid=%d error=%d in %v",
			file.Title, counters.TotalRecords, counters.ValidRecords,
			counters.ErrorRecords, time.Since(start))

		resp := map[string]interface{}{
			"success":                 true,
			"allocation_file_id":      file.AllocationFileID,
			"title":                   file.Title,
			"no_of_total_records":     counters.TotalRecords,
			"no_of_valid_records":     counters.ValidRecords,
			"no_of_error_records":     counters.ErrorRecords,
			"no_of_duplicate_records": counters.DuplicateRecords,
			"allocation_status":       statusForCounters(counters),
		}
		if errorFileURL != "" {
			resp["latest_error_file_url"] = errorFileURL
		}
		respondWithJSON(w, resp)
	}
}
