package resilience

import (
	"errors"
	"sync"
	"time"

	"conversation-webhook/backend/pkg/logger"
)

// ErrCircuitOpen is returned without running the call while the breaker is open
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerState represents the current state of a circuit breaker
type CircuitBreakerState string

const (
	// StateClosed means the circuit is closed and requests are allowed to pass through
	StateClosed CircuitBreakerState = "closed"
	// StateOpen means the circuit is open and requests are being short-circuited
	StateOpen CircuitBreakerState = "open"
	// StateHalfOpen means the circuit is allowing a limited number of test requests
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
	// IsFailure decides which errors count against the breaker. Nil counts every error.
	IsFailure func(error) bool
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// Metrics is a snapshot of breaker counters
type Metrics struct {
	State            CircuitBreakerState
	TotalRequests    uint64
	TotalFailures    uint64
	TotalSuccesses   uint64
	Rejected         uint64
	OpenCircuitCount uint64
	LastFailureTime  time.Time
}

// CircuitBreaker implements the Circuit Breaker pattern
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failureCount    uint
	successCount    uint
	probes          uint
	nextAttemptTime time.Time
	metrics         Metrics
	now             func() time.Time
	mutex           sync.Mutex
	log             *logger.Logger
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker {
	if log == nil {
		log = logger.GetGlobal()
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
		log:    log,
	}
}

// Execute runs fn through the circuit breaker and returns its error unchanged
func (cb *CircuitBreaker) Execute(fn func() error) error {
	allowed, probe := cb.allowRequest()
	if !allowed {
		cb.log.Warn("Circuit breaker preventing request",
			"name", cb.config.Name,
			"state", string(cb.GetState()),
		)
		return ErrCircuitOpen
	}

	startTime := cb.now()
	err := fn()

	if err != nil && cb.isFailure(err) {
		cb.recordFailure(probe)
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.config.Name,
			"error", err.Error(),
			"duration", cb.now().Sub(startTime).String(),
		)
		return err
	}

	cb.recordSuccess(probe)
	return err
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	if cb.config.IsFailure == nil {
		return true
	}
	return cb.config.IsFailure(err)
}

// allowRequest checks if a request should be allowed to proceed. While half
// open, at most SuccessThreshold probe calls are in flight or succeeded.
func (cb *CircuitBreaker) allowRequest() (allowed bool, probe bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.metrics.TotalRequests++

	switch cb.state {
	case StateOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.toHalfOpen()
			cb.probes++
			return true, true
		}
	case StateHalfOpen:
		if cb.successCount+cb.probes < cb.config.SuccessThreshold {
			cb.probes++
			return true, true
		}
	default:
		return true, false
	}

	cb.metrics.Rejected++
	return false, false
}

// endProbe releases a probe slot taken in the current half-open period
func (cb *CircuitBreaker) endProbe(probe bool) {
	if probe && cb.state == StateHalfOpen && cb.probes > 0 {
		cb.probes--
	}
}

// recordSuccess records a successful request
func (cb *CircuitBreaker) recordSuccess(probe bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.endProbe(probe)

	cb.metrics.TotalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.toClosed()
		}
	}
}

// recordFailure records a failed request
func (cb *CircuitBreaker) recordFailure(probe bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.endProbe(probe)

	cb.metrics.TotalFailures++
	cb.metrics.LastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		// Any failure while probing reopens the circuit
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.metrics.OpenCircuitCount++
	cb.nextAttemptTime = cb.now().Add(cb.config.RetryTimeout)

	cb.log.Info("Circuit breaker opened",
		"name", cb.config.Name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.probes = 0

	cb.log.Info("Circuit breaker half-open", "name", cb.config.Name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.probes = 0

	cb.log.Info("Circuit breaker closed", "name", cb.config.Name)
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.state
}

// GetMetrics returns a snapshot of the breaker counters
func (cb *CircuitBreaker) GetMetrics() Metrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	m := cb.metrics
	m.State = cb.state
	return m
}
