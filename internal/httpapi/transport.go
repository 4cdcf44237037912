// Package httpapi is the shared HTTP transport of the operator's API clients.
// It adds per-endpoint circuit breaking, client-side rate limiting and error
// classification on top of net/http.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
)

const (
	defaultRateLimitQPS   = 5.0
	defaultRateLimitBurst = 10

	defaultCircuitBreakerFailureThreshold = 20
	defaultCircuitBreakerOpenDuration     = 30 * time.Second
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitBreaker struct {
	failures         int
	state            circuitState
	openUntil        time.Time
	halfOpenInFlight bool
}

// clientState holds the rate limiter and the circuit breakers of one client.
type clientState struct {
	component string
	limiter   *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*circuitBreaker

	failureThreshold int
	openDuration     time.Duration
}

func newClientState(cfg Config) *clientState {
	qps := cfg.RateLimitQPS
	if qps <= 0 {
		qps = defaultRateLimitQPS
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}
	failureThreshold := cfg.CircuitBreakerFailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = defaultCircuitBreakerFailureThreshold
	}
	openDuration := cfg.CircuitBreakerOpenDuration
	if openDuration <= 0 {
		openDuration = defaultCircuitBreakerOpenDuration
	}

	return &clientState{
		component:        cfg.Component,
		limiter:          rate.NewLimiter(rate.Limit(qps), burst),
		breakers:         make(map[string]*circuitBreaker),
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
	}
}

func (s *clientState) requestKey(req *http.Request) string {
	if req == nil || req.URL == nil {
		return "unknown"
	}
	host := req.URL.Host
	if host == "" {
		host = "unknown-host"
	}
	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s %s %s", host, req.Method, path)
}

func (s *clientState) breaker(key string) *circuitBreaker {
	br := s.breakers[key]
	if br == nil {
		br = &circuitBreaker{state: circuitClosed}
		s.breakers[key] = br
	}
	return br
}

// allow blocks on the rate limiter and rejects requests to endpoints whose
// circuit is open.
func (s *clientState) allow(ctx context.Context, req *http.Request) error {
	if s == nil {
		return nil
	}
	reqKey := s.requestKey(req)
	now := time.Now()

	s.mu.Lock()
	br := s.breaker(reqKey)
	switch br.state {
	case circuitOpen:
		if now.Before(br.openUntil) {
			until := br.openUntil
			s.mu.Unlock()
			return operatorerrors.WrapTransientRemoteOverloaded(
				fmt.Errorf("%s circuit breaker open for %s (retry after %s)", s.component, reqKey, time.Until(until).Truncate(time.Second)),
			)
		}
		br.state = circuitHalfOpen
		br.halfOpenInFlight = false
	case circuitHalfOpen:
		if br.halfOpenInFlight {
			s.mu.Unlock()
			return operatorerrors.WrapTransientRemoteOverloaded(
				fmt.Errorf("%s circuit breaker half-open (probe in-flight) for %s", s.component, reqKey),
			)
		}
	case circuitClosed:
	}

	probe := false
	if br.state == circuitHalfOpen {
		br.halfOpenInFlight = true
		probe = true
	}
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		if probe {
			s.mu.Lock()
			br.halfOpenInFlight = false
			s.mu.Unlock()
		}
		return err
	}
	return nil
}

// after records the outcome of a request.
func (s *clientState) after(req *http.Request, success bool) {
	if s == nil {
		return
	}
	reqKey := s.requestKey(req)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	br := s.breaker(reqKey)
	switch br.state {
	case circuitHalfOpen:
		br.halfOpenInFlight = false
		if success {
			br.state = circuitClosed
			br.failures = 0
			br.openUntil = time.Time{}
			return
		}
		br.state = circuitOpen
		br.failures = s.failureThreshold
		br.openUntil = now.Add(s.openDuration)
	case circuitOpen:
		if success {
			br.state = circuitClosed
			br.failures = 0
			br.openUntil = time.Time{}
		}
	case circuitClosed:
		if success {
			br.failures = 0
			return
		}
		br.failures++
		if br.failures >= s.failureThreshold {
			br.state = circuitOpen
			br.openUntil = now.Add(s.openDuration)
		}
	}
}
