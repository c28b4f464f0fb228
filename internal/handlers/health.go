package handlers

import (
	"database/sql"
	"net/http"
)

// HealthHandler probes database connectivity.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthcheck runs a trivial query against the database. Any failure is
// collapsed into a fixed 500 message.
func (h *HealthHandler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := h.db.QueryRowContext(r.Context(), "SELECT 1").Scan(&one); err != nil || one != 1 {
		writeError(w, http.StatusInternalServerError, msgDatabaseDown)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "welcome to the contacts book api"})
}
