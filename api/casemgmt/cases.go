package casemgmt

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"SigmaCollect/api/auth"
	"SigmaCollect/api/constants"
	"SigmaCollect/api/utils"
	"SigmaCollect/internal/notification"

	"github.com/jackc/pgx/v5/pgxpool"
)

func respondWithError(w http.ResponseWriter, status int, errMsg string) {
	log.Printf("[ERROR] %s", errMsg)
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

func sessionUserName(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Name
		}
	}
	return ""
}

// Case is the materialized loan case view returned by the list handler.
type Case struct {
	CaseID             string     `json:"case_id"`
	AllocationFileID   string     `json:"allocation_file_id"`
	LoanAccountNumber  string     `json:"loan_account_number"`
	CustomerName       *string    `json:"customer_name"`
	TotalLoanAmount    *string    `json:"total_loan_amount"`
	MinimumDueAmount   *string    `json:"minimum_due_amount"`
	CurrentDPD         *int64     `json:"current_dpd"`
	DueDate            *time.Time `json:"due_date"`
	Bucket             *string    `json:"bucket"`
	Risk               *string    `json:"risk"`
	ResidentialPincode *string    `json:"residential_pincode"`
	OfficePincode      *string    `json:"office_pincode"`
	FieldMappingStatus string     `json:"field_mapping_status"`
	LifecycleStage     string     `json:"lifecycle_stage"`
	AssignedTo         *string    `json:"assigned_to"`
	ErrorReasons       []string   `json:"error_reasons,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// GetCases handles POST /casemgmt/cases: lists cases for an allocation
// file, optionally filtered by mapping status.
func GetCases(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req struct {
			UserID             string `json:"user_id"`
			AllocationFileID   string `json:"allocation_file_id"`
			FieldMappingStatus string `json:"field_mapping_status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.AllocationFileID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if sessionUserName(req.UserID) == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}

		pagination, err := utils.ExtractPagination(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		countQuery := `SELECT COUNT(*) FROM case_management_cases WHERE allocation_file_id = $1`
		query := `
			SELECT case_id, allocation_file_id, loan_account_number, customer_name,
			       total_loan_amount::text, minimum_due_amount::text, current_dpd,
			       due_date, bucket, risk, residential_pincode, office_pincode,
			       field_mapping_status, lifecycle_stage, assigned_to,
			       error_reasons, created_at
			FROM case_management_cases
			WHERE allocation_file_id = $1`
		args := []interface{}{req.AllocationFileID}
		if req.FieldMappingStatus != "" {
			countQuery += ` AND field_mapping_status = $2`
			query += ` AND field_mapping_status = $2`
			args = append(args, req.FieldMappingStatus)
		}

		total, err := utils.CountTotal(ctx, pool, countQuery, args...)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}
		pagination.SetPaginationStats(total)

		query += fmt.Sprintf(` ORDER BY created_at LIMIT %d OFFSET %d`, pagination.Limit, pagination.Offset)

		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}
		defer rows.Close()

		results := make([]Case, 0)
		for rows.Next() {
			var c Case
			if err := rows.Scan(&c.CaseID, &c.AllocationFileID, &c.LoanAccountNumber,
				&c.CustomerName, &c.TotalLoanAmount, &c.MinimumDueAmount, &c.CurrentDPD,
				&c.DueDate, &c.Bucket, &c.Risk, &c.ResidentialPincode, &c.OfficePincode,
				&c.FieldMappingStatus, &c.LifecycleStage, &c.AssignedTo,
				&c.ErrorReasons, &c.CreatedAt); err != nil {
				respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
				return
			}
			results = append(results, c)
		}
		if rows.Err() != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"rows":       results,
			"pagination": pagination,
		})
	}
}

// BulkAssignCases handles POST /casemgmt/assign: links a field officer to
// a set of cases. Cases parked in the terminal Flow stage are skipped.
func BulkAssignCases(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req struct {
			UserID         string   `json:"user_id"`
			CaseIDs        []string `json:"case_ids"`
			FieldOfficerID string   `json:"field_officer_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		userName := sessionUserName(req.UserID)
		if userName == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}
		if len(req.CaseIDs) == 0 {
			respondWithError(w, http.StatusBadRequest, constants.ErrCaseIDsRequired)
			return
		}
		if req.FieldOfficerID == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrFieldOfficerRequired)
			return
		}

		assignSQL := `
			UPDATE case_management_cases
			SET assigned_to = $1, updated_at = now()
			WHERE case_id = ANY($2) AND lifecycle_stage != 'Flow'
			RETURNING case_id`
		rows, err := pool.Query(ctx, assignSQL, req.FieldOfficerID, req.CaseIDs)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrCaseAssignFailed)
			return
		}
		defer rows.Close()
		var assigned []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err == nil {
				assigned = append(assigned, id)
			}
		}

		notification.Push("Field officer " + req.FieldOfficerID + " assigned " + userName + "'s case batch")

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"assigned": assigned,
		})
	}
}

// BulkUpdateStage handles POST /casemgmt/stage: moves a set of cases to a
// new lifecycle stage. Moving into Flow closes them for duplicate
// detection purposes.
func BulkUpdateStage(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req struct {
			UserID  string   `json:"user_id"`
			CaseIDs []string `json:"case_ids"`
			Stage   string   `json:"stage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Stage == "" {
			respondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if sessionUserName(req.UserID) == "" {
			respondWithError(w, http.StatusUnauthorized, constants.ErrSessionInvalid)
			return
		}
		if len(req.CaseIDs) == 0 {
			respondWithError(w, http.StatusBadRequest, constants.ErrCaseIDsRequired)
			return
		}

		stageSQL := `
			UPDATE case_management_cases
			SET lifecycle_stage = $1, updated_at = now()
			WHERE case_id = ANY($2)
			RETURNING case_id`
		rows, err := pool.Query(ctx, stageSQL, req.Stage, req.CaseIDs)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, constants.ErrDB)
			return
		}
		defer rows.Close()
		var updated []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err == nil {
				updated = append(updated, id)
			}
		}

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"updated": updated,
		})
	}
}
