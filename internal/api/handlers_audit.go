package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/org/memberauth/internal/storage"
)

// AuthEventsHandler handles GET /api/v1/sys/auth-events
func (s *Server) AuthEventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EventFilter{
		Username: q.Get("username"),
		Limit:    100,
	}

	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	events, err := s.auditor.Query(r.Context(), filter)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}
