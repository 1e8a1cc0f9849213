package health

import (
	"sync"
	"time"
)

// Status represents the health status of a run prerequisite
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents the outcome of one preflight check
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

// HealthChecker runs the registered checks before a pipeline run
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// Response represents the overall preflight result
type Response struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	// Checks in name order
	Checks []Check `json:"checks"`
}
