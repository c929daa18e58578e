package allocation

import (
	"encoding/json"
	"log"
	"net/http"

	"SigmaCollect/api/auth"
	"SigmaCollect/api/constants"
)

// Helper for consistent error responses
func respondWithError(w http.ResponseWriter, status int, errMsg string) {
	log.Printf("[ERROR] %s", errMsg)
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// respondFieldError returns the {error_message, key} pair the entry
// points use for request validation failures.
func respondFieldError(w http.ResponseWriter, status int, errMsg, key string) {
	fe := &FieldError{Message: errMsg, Key: key}
	log.Printf("[ERROR] %s", fe.Error())
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Success bool `json:"success"`
		*FieldError
	}{Success: false, FieldError: fe})
}

func respondWithJSON(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(payload)
}

// sessionUserName resolves the caller against the in-process session
// registry; empty means no active session.
func sessionUserName(userID string) string {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID {
			return s.Name
		}
	}
	return ""
}
