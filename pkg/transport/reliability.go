package transport

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig controls how often a failed call to one endpoint is retried.
// Zero MaxRetries disables retries.
type RetryConfig struct {
	MaxRetries         int           `mapstructure:"max_retries"`
	InitialRetryDelay  time.Duration `mapstructure:"initial_retry_delay"`
	MaxRetryDelay      time.Duration `mapstructure:"max_retry_delay"`
	RetryBackoffFactor float64       `mapstructure:"retry_backoff_factor"`
}

// CircuitBreakerConfig controls the breaker kept per upstream host
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureThreshold consecutive failures open the breaker
	FailureThreshold int `mapstructure:"failure_threshold"`
	// SuccessThreshold probes must succeed before it closes again
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = 100 * time.Millisecond
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 5 * time.Second
	}
	if c.RetryBackoffFactor < 1 {
		c.RetryBackoffFactor = 2
	}
	return c
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// backoff is the wait before retry n (1-based): exponential, capped at
// MaxRetryDelay, then spread by up to 10% either way.
func (c RetryConfig) backoff(n int) time.Duration {
	d := math.Min(
		float64(c.InitialRetryDelay)*math.Pow(c.RetryBackoffFactor, float64(n-1)),
		float64(c.MaxRetryDelay),
	)
	jitter := d * 0.1 * (2*rand.Float64() - 1)
	return time.Duration(d + jitter)
}

type breakerState string

const (
	circuitClosed   breakerState = "closed"
	circuitOpen     breakerState = "open"
	circuitHalfOpen breakerState = "half-open"
)

// circuitBreaker fails calls to a host fast once it has failed
// FailureThreshold times in a row. After Timeout it lets probe calls
// through; a failed probe opens it again.
type circuitBreaker struct {
	cfg CircuitBreakerConfig
	// onChange is called with the lock held
	onChange func(from, to breakerState)

	mu       sync.Mutex
	state    breakerState
	failures int
	probes   int
	openedAt time.Time
}

func newCircuitBreaker(cfg CircuitBreakerConfig, onChange func(from, to breakerState)) *circuitBreaker {
	return &circuitBreaker{cfg: cfg.withDefaults(), state: circuitClosed, onChange: onChange}
}

func (cb *circuitBreaker) setState(to breakerState) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.onChange != nil {
		cb.onChange(from, to)
	}
}

// allow reports whether a call may go out now
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != circuitOpen {
		return true
	}
	if time.Since(cb.openedAt) <= cb.cfg.Timeout {
		return false
	}
	cb.probes = 0
	cb.setState(circuitHalfOpen)
	return true
}

func (cb *circuitBreaker) succeeded() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != circuitHalfOpen {
		return
	}
	if cb.probes++; cb.probes >= cb.cfg.SuccessThreshold {
		cb.setState(circuitClosed)
	}
}

func (cb *circuitBreaker) failed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == circuitHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = time.Now()
		cb.setState(circuitOpen)
	}
}
