package allocation

import (
	"encoding/json"
	"net/http"
	"time"

	"SigmaCollect/api/constants"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GetAllocationFiles handles POST /allocation/files: lists allocation
// files with the read-time expiry override applied: a file past its
// expiry date reports EXPIRED regardless of the stored status.
func GetAllocationFiles(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req struct {
			UserID  string `json:"user_id"`
			CycleID string `json:"cycle_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if sessionUserName(req.UserID) == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}

		query := `
			SELECT allocation_file_id, title, file_url, initial_file_url,
			       latest_reupload_file_url, latest_error_file_url,
			       no_of_total_records, no_of_valid_records,
			       no_of_error_records, no_of_duplicate_records,
			       expiry_date, allocation_status, product_assignment_id,
			       cycle_id, created_by, created_at
			FROM allocation_files`
		args := []interface{}{}
		if req.CycleID != "" {
			query += ` WHERE cycle_id = $1`
			args = append(args, req.CycleID)
		}
		query += ` ORDER BY created_at DESC`

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}
		defer rows.Close()

		now := time.Now()
		results := make([]AllocationFile, 0)
		for rows.Next() {
			var f AllocationFile
			if err := rows.Scan(&f.AllocationFileID, &f.Title, &f.FileURL, &f.InitialFileURL,
				&f.LatestReuploadURL, &f.LatestErrorFileURL,
				&f.TotalRecords, &f.ValidRecords, &f.ErrorRecords, &f.DuplicateRecords,
				&f.ExpiryDate, &f.AllocationStatus, &f.ProductAssignmentID,
				&f.CycleID, &f.CreatedBy, &f.CreatedAt); err != nil {
				respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
				return
			}
			f.AllocationStatus = f.EffectiveStatus(now)
			results = append(results, f)
		}
		if rows.Err() != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		respondWithJSON(w, map[string]interface{}{
			"success": true,
			"rows":    results,
		})
	}
}

// GetAllocationFileHeaders handles POST /allocation/headers: resolves
// only the header row of a remote file against a product assignment's
// template, without loading the data rows. Used by the configuration UI
// to pre-check files before a full upload.
func GetAllocationFileHeaders(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req struct {
			UserID              string `json:"user_id"`
			FileURL             string `json:"file_url"`
			ProductAssignmentID string `json:"product_assignment_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if sessionUserName(req.UserID) == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}

		headers, err := FetchHeaders(ctx, req.FileURL)
		if err != nil {
			respondFieldError(w, http.StatusBadRequest, err.Error(), "file_url")
			return
		}

		resp := map[string]interface{}{
			"success": true,
			"headers": headers,
		}
		if req.ProductAssignmentID != "" {
			tmpl, err := LoadDefaultTemplate(ctx, pool, req.ProductAssignmentID)
			if err != nil {
				respondFieldError(w, http.StatusBadRequest, constants.ErrNoDefaultTemplate, "product_assignment_id")
				return
			}
			resp["expected_headers"] = tmpl.ExpandedHeaders()
			resp["required_headers"] = tmpl.RequiredHeaders()
			if err := ValidateHeaders(headers, tmpl, HeaderSetMatch); err != nil {
				resp["headers_valid"] = false
				resp["validation_error"] = err.Error()
			} else {
				resp["headers_valid"] = true
			}
		}
		respondWithJSON(w, resp)
	}
}
