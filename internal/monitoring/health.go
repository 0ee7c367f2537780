package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

const maxHealthErrors = 20

type HealthChecker struct {
	mu             sync.RWMutex
	lastAssessment time.Time
	lastScore      int
	assessments    int
	engineEnabled  bool
	errors         []string
	staleAfter     time.Duration
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastAssessment time.Time `json:"last_assessment"`
	LastScore      int       `json:"last_score"`
	Assessments    int       `json:"assessments"`
	EngineEnabled  bool      `json:"engine_enabled"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports "degraded" when no assessment ran within staleAfter
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &HealthChecker{
		errors:        make([]string, 0),
		engineEnabled: true,
		staleAfter:    staleAfter,
	}
}

// RecordAssessment notes a completed assessment
func (h *HealthChecker) RecordAssessment(score int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastAssessment = time.Now()
	h.lastScore = score
	h.assessments++
}

// SetEngineEnabled mirrors the unified engine's enabled flag
func (h *HealthChecker) SetEngineEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engineEnabled = enabled
}

// RecordError keeps the most recent errors for the health payload
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[len(h.errors)-maxHealthErrors:]
	}
}

// Status computes the current health without writing a response
func (h *HealthChecker) Status() (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.engineEnabled || h.lastAssessment.IsZero() || time.Since(h.lastAssessment) > h.staleAfter {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastAssessment: h.lastAssessment,
		LastScore:      h.lastScore,
		Assessments:    h.assessments,
		EngineEnabled:  h.engineEnabled,
		Uptime:         time.Since(startTime).String(),
		Errors:         errs,
	}, code
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health, code := h.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
