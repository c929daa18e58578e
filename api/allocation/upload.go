package allocation

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"SigmaCollect/api/constants"
	"SigmaCollect/internal/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type uploadRequest struct {
	UserID              string `json:"user_id"`
	FileName            string `json:"file_name"`
	FileURL             string `json:"file_url"`
	ProductAssignmentID string `json:"product_assignment_id"`
	CycleID             string `json:"cycle_id"`
	ExpiryDate          string `json:"expiry_date"`
}

// UploadAllocationFile handles POST /allocation/upload: the first entry
// point of the pipeline. It resolves the assignment's template, fetches
// and tabulates the remote file, validates headers, reconciles rows and
// materializes the batch in one transaction. Row-level failures never
// abort the cycle; fetch and schema failures abort before any row work.
func UploadAllocationFile(pool *pgxpool.Pool, store ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		userName := sessionUserName(req.UserID)
		if userName == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}

		if strings.TrimSpace(req.FileName) == "" {
			respondFieldError(w, http.StatusBadRequest, constants.ErrAllocationFileNameRequired, "file_name")
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
		if strings.TrimSpace(req.ProductAssignmentID) == "" {
			respondFieldError(w, http.StatusBadRequest, constants.ErrProductAssignmentRequired, "product_assignment_id")
			return
		}

		var titleTaken bool
		err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM allocation_files WHERE title = $1)`, req.FileName).Scan(&titleTaken)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}
		if titleTaken {
			respondFieldError(w, http.StatusBadRequest, constants.ErrAllocationFileNameTaken, "file_name")
			return
		}

		cycleID := req.CycleID
		if cycleID == "" {
			err = pool.QueryRow(ctx, `
				SELECT cycle_id FROM monthly_cycles
				WHERE status = 'OPEN'
				ORDER BY start_date DESC LIMIT 1
			`).Scan(&cycleID)
			if err != nil {
				respondFieldError(w, http.StatusBadRequest, constants.ErrNoOpenCycle, "cycle_id")
				return
			}
		}

		tmpl, err := LoadDefaultTemplate(ctx, pool, req.ProductAssignmentID)
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

		live, err := loadLiveAccountsForTable(ctx, pool, tmpl, table)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		engine := &Engine{Template: tmpl, Mode: ModeFullUpload, LiveAccounts: live}
		result := engine.Reconcile(table)

		expiry := defaultExpiry()
		if req.ExpiryDate != "" {
			if t, perr := time.Parse(constants.DateFormat, req.ExpiryDate); perr == nil {
				expiry = t
			} else {
				respondFieldError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD", "expiry_date")
				return
			}
		}

		file := &AllocationFile{
			AllocationFileID:    uuid.New().String(),
			Title:               req.FileName,
			FileURL:             req.FileURL,
			InitialFileURL:      req.FileURL,
			ExpiryDate:          &expiry,
			ProductAssignmentID: req.ProductAssignmentID,
			CycleID:             cycleID,
			CreatedBy:           userName,
		}

		writer := NewWriter(pool)
		counters, err := writer.MaterializeUpload(ctx, file, result)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrAllocationUploadFailed)
			return
		}

		errorFileURL := generateAndRecordErrorFile(ctx, writer, store, tmpl, file.AllocationFileID, result.ErrorRows)

		notification.Push("Allocation file " + file.Title + " processed by " + userName)
		log.Printf("[INFO] allocation upload %s: total=%d valid=%d error=%d duplicate=%d in %v",
			file.Title, counters.TotalRecords, counters.ValidRecords,
			counters.ErrorRecords, counters.DuplicateRecords, time.Since(start))

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

// loadLiveAccountsForTable collects the file's identifier column and
// queries which already have a live case.
func loadLiveAccountsForTable(ctx context.Context, pool *pgxpool.Pool, tmpl *Template, table [][]string) (map[string]bool, error) {
	header := tmpl.LoanAccountHeader()
	idx := -1
	for i, h := range trimAll(table[0]) {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return map[string]bool{}, nil
	}
	seen := make(map[string]bool)
	accounts := make([]string, 0, len(table)-1)
	for _, row := range table[1:] {
		if acc := cellAt(row, idx); acc != "" && !seen[acc] {
			seen[acc] = true
			accounts = append(accounts, acc)
		}
	}
	return LoadLiveAccounts(ctx, pool, accounts)
}

// generateAndRecordErrorFile produces the downloadable error report when
// the cycle left error rows behind. Artifact failures are logged, not
// fatal: the rows and counters are already committed.
func generateAndRecordErrorFile(ctx context.Context, writer *Writer, store ArtifactStore, tmpl *Template, allocationFileID string, errorRows []ErrorRow) string {
	if len(errorRows) == 0 || store == nil {
		return ""
	}
	url, err := GenerateErrorFile(ctx, store, tmpl, allocationFileID, errorRows)
	if err != nil {
		log.Printf("[ERROR] %s: %v", constants.ErrErrorFileGeneration, err)
		return ""
	}
	if err := writer.SetErrorFileURL(ctx, allocationFileID, url); err != nil {
		log.Printf("[ERROR] %s: %v", constants.ErrErrorFileUpload, err)
	}
	return url
}

// defaultExpiry closes an allocation file at the end of the calendar
// month it was uploaded in.
func defaultExpiry() time.Time {
	now := time.Now()
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second)
}
