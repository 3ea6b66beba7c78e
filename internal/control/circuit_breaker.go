package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreaker protects the control socket from a misbehaving or
// compromised admin client hammering it with pings (grounded on
// ipc.CircuitBreaker, unchanged in behavior).
type CircuitBreaker struct {
	enabled     bool
	threshold   uint32
	timeout     time.Duration
	failures    uint32
	lastFailure time.Time
	mu          sync.Mutex
}

func NewCircuitBreaker(enabled bool, threshold uint32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{enabled: enabled, threshold: threshold, timeout: timeout}
}

func (cb *CircuitBreaker) Check() bool {
	if !cb.enabled {
		return true
	}
	if atomic.LoadUint32(&cb.failures) < cb.threshold {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Since(cb.lastFailure) > cb.timeout
}

func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.enabled {
		return
	}
	atomic.StoreUint32(&cb.failures, 0)
}

func (cb *CircuitBreaker) RecordFailure() {
	if !cb.enabled {
		return
	}
	if prev := atomic.AddUint32(&cb.failures, 1); prev >= cb.threshold {
		cb.mu.Lock()
		cb.lastFailure = time.Now()
		cb.mu.Unlock()
	}
}
