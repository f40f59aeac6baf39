package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker rejects a second checker under an existing name.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// DefaultCheckTimeout bounds a single check when the caller's context has
// no earlier deadline.
const DefaultCheckTimeout = 2 * time.Second

// HealthChecker is a dependency that can report whether it works.
// Storage backends and corpus sources register one at startup.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// OptionalChecker marks a dependency the service can run without.
// When it fails the service is degraded, not unhealthy.
type OptionalChecker interface {
	Optional() bool
}

// HealthRegistry aggregates health checks.
type HealthRegistry interface {
	Register(checker HealthChecker) error
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is healthy, degraded or unhealthy.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the outcome of CheckAll.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Optional bool          `json:"optional,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry runs its checks concurrently, each under its own
// timeout.
type DefaultHealthRegistry struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry returns an empty registry using DefaultCheckTimeout.
func NewHealthRegistry() *DefaultHealthRegistry {
	return NewHealthRegistryWithTimeout(DefaultCheckTimeout)
}

// NewHealthRegistryWithTimeout returns an empty registry whose checks are
// cut off after timeout. Zero or less leaves only the caller's deadline.
func NewHealthRegistryWithTimeout(timeout time.Duration) *DefaultHealthRegistry {
	return &DefaultHealthRegistry{timeout: timeout, checkers: map[string]HealthChecker{}}
}

// Register adds checker under its name.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	name := checker.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checkers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.checkers[name] = checker

	return nil
}

// CheckAll runs every check and folds them into one status. A failing
// required check makes the result unhealthy; a failing optional one only
// degrades it.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checks := make(map[string]*CheckResult, len(r.checkers))
	pending := make(map[string]HealthChecker, len(r.checkers))

	for name, c := range r.checkers {
		pending[name] = c
	}
	r.mu.RUnlock()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for name, c := range pending {
		wg.Go(func() {
			res := r.run(ctx, c)

			mu.Lock()
			checks[name] = res
			mu.Unlock()
		})
	}

	wg.Wait()

	status := HealthStatusHealthy

	for _, res := range checks {
		switch {
		case res.Status == HealthStatusHealthy:
		case !res.Optional:
			status = HealthStatusUnhealthy
		case status == HealthStatusHealthy:
			status = HealthStatusDegraded
		}
	}

	return &HealthResult{Status: status, Checks: checks, Timestamp: time.Now()}
}

func (r *DefaultHealthRegistry) run(ctx context.Context, c HealthChecker) *CheckResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)

		defer cancel()
	}

	res := &CheckResult{Status: HealthStatusHealthy}
	if o, ok := c.(OptionalChecker); ok {
		res.Optional = o.Optional()
	}

	start := time.Now()
	err := c.Check(ctx)
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}
