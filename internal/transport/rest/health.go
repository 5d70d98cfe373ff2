package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth is one dependency's probe outcome.
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	LatencyMs int64        `json:"latency_ms"`
}

type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthHandler probes the dependencies the service cannot serve without.
// The principal database is the only hard one; SMTP delivery is best effort
// and deliberately not probed here.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// ping answers liveness without touching any dependency.
func (h *HealthHandler) ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// readiness pings the principal database and reports per-component status.
// A degraded database answers 503 so the load balancer stops routing here.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)

	dbHealth := ComponentHealth{
		Status:    HealthOK,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	statusCode := http.StatusOK
	if err != nil {
		dbHealth.Status = HealthDegraded
		dbHealth.Error = err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:     dbHealth.Status,
		CheckedAt:  time.Now(),
		Components: map[string]ComponentHealth{"principal_db": dbHealth},
	})
}
