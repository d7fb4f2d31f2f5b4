package handlers

import (
	"database/sql"
	"net/http"

	"github.com/brikvest/apiserver/internal/cache"
)

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}

// Readyz reports readiness by pinging the database and Redis.
func Readyz(db *sql.DB, c *cache.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := c.Redis().Ping(r.Context()).Err(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "ready"})
	}
}
