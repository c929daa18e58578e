package api

import (
	"net/http"

	"SigmaCollect/internal/notification"
)

// NotificationsHandler returns the shared in-memory event feed.
func NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithPayload(w, true, "", notification.Recent())
}
