package monitoring

import (
	"context"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name    string
	check   CheckFunc
	timeout time.Duration
}

// HealthChecker aggregates dependency probes for the readiness endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []namedCheck
}

// HealthStatus is the readiness payload: overall verdict plus a per-check
// message.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) AddCheck(name string, check CheckFunc, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check, timeout: timeout})
}

// CheckAll runs every registered probe. One unhealthy dependency flips the
// overall status.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[c.name] = err.Error()
		} else {
			status.Checks[c.name] = "healthy"
		}
	}
	return status
}
