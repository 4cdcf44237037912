package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// Transient errors indicate temporary conditions that should be retried.
// These errors typically result in requeue with a delay.

// ErrTransientConnection indicates a transient connection error that should be retried.
// This includes timeouts, connection refused, DNS resolution failures, and network unreachable errors.
var ErrTransientConnection = errors.New("transient connection error")

// ErrTransientKubernetesAPI indicates a transient Kubernetes API error that should be retried.
// This includes rate limiting, temporary server errors, and network issues.
var ErrTransientKubernetesAPI = errors.New("transient Kubernetes API error")

// ErrTransientRemoteOverloaded indicates that the RabbitMQ management API or the
// backup daemon answered 429 or 5xx, or that its circuit breaker is open.
var ErrTransientRemoteOverloaded = errors.New("transient remote overload")

// Permanent errors indicate configuration or state issues that require user intervention.
// These errors should NOT be requeued automatically; reconciliation should wait for user changes.

// ErrPermanentConfig indicates a permanent configuration error that requires user intervention.
// This includes invalid configuration values, missing required fields, or incompatible settings.
var ErrPermanentConfig = errors.New("permanent configuration error")

// ErrPermanentPrerequisitesMissing indicates that required prerequisites are missing
// and reconciliation should wait for them to be created. This is similar to transient
// but indicates a dependency that may require user action (e.g., external TLS provider).
var ErrPermanentPrerequisitesMissing = errors.New("permanent prerequisites missing")

// ErrValidation indicates a declared spec combination the operator refuses to apply.
var ErrValidation = errors.New("invalid RabbitMQService spec")

// ErrConvergenceTimeout indicates that readiness, membership, health or test
// results were not reached within their polling budget.
var ErrConvergenceTimeout = errors.New("convergence timeout")

// StatusError is a permanent failure that carries the message recorded in the
// status condition log.
type StatusError struct {
	// Kind is one of the sentinel errors of this package.
	Kind    error
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StatusError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewValidation returns a validation failure with a user-visible message.
func NewValidation(message string) error {
	return &StatusError{Kind: ErrValidation, Message: message}
}

// NewPrerequisitesMissing returns a missing-prerequisite failure with a user-visible message.
func NewPrerequisitesMissing(message string) error {
	return &StatusError{Kind: ErrPermanentPrerequisitesMissing, Message: message}
}

// NewConvergenceTimeout returns a convergence failure with a user-visible message.
func NewConvergenceTimeout(message string, cause error) error {
	return &StatusError{Kind: ErrConvergenceTimeout, Message: message, Err: cause}
}

// StatusMessage returns the user-visible message of err, if it carries one.
func StatusMessage(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}

// DisasterRecoveryError is a business-rule violation of a switchover: nothing
// to restore, a lock that never clears, or a job that reports failure.
type DisasterRecoveryError struct {
	Message string
}

func (e *DisasterRecoveryError) Error() string {
	return e.Message
}

// NewDisasterRecovery returns a DisasterRecoveryError.
func NewDisasterRecovery(format string, args ...any) error {
	return &DisasterRecoveryError{Message: fmt.Sprintf(format, args...)}
}

// IsDisasterRecovery reports whether err is a DisasterRecoveryError.
func IsDisasterRecovery(err error) bool {
	var drErr *DisasterRecoveryError
	return errors.As(err, &drErr)
}

// IsTransientConnection checks if an error is a transient connection error.
// This includes network timeouts, connection refused, DNS failures, and similar issues.
func IsTransientConnection(err error) bool {
	if err == nil {
		return false
	}

	// Check for our sentinel error
	if errors.Is(err, ErrTransientConnection) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Check for common transient connection error patterns
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"context deadline exceeded",
		"timeout",
		"i/o timeout",
		"no such host",
		"network is unreachable",
		"temporary failure",
		"dial tcp",
		"connection closed",
		"broken pipe",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	// Check for net.Error types that indicate transient issues
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
		if netErr.Temporary() {
			return true
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsTransientKubernetesAPI checks if an error is a transient Kubernetes API error.
func IsTransientKubernetesAPI(err error) bool {
	if err == nil {
		return false
	}

	// Check for our sentinel error
	if errors.Is(err, ErrTransientKubernetesAPI) {
		return true
	}

	if apierrors.IsTooManyRequests(err) || apierrors.IsServerTimeout(err) || apierrors.IsTimeout(err) ||
		apierrors.IsServiceUnavailable(err) || apierrors.IsInternalError(err) || apierrors.IsConflict(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Check for Kubernetes API transient error patterns
	transientPatterns := []string{
		"rate limit",
		"too many requests",
		"server error",
		"service unavailable",
		"internal server error",
		"context deadline exceeded",
		"timeout",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// WrapTransientConnection wraps an error as a transient connection error.
// If the error is already a transient connection error, it is returned as-is.
func WrapTransientConnection(err error) error {
	if err == nil {
		return nil
	}

	if IsTransientConnection(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientConnection, err)
}

// WrapTransientKubernetesAPI wraps an error as a transient Kubernetes API error.
func WrapTransientKubernetesAPI(err error) error {
	if err == nil {
		return nil
	}

	if IsTransientKubernetesAPI(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientKubernetesAPI, err)
}

// WrapTransientRemoteOverloaded wraps an error as a transient remote overload.
func WrapTransientRemoteOverloaded(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTransientRemoteOverloaded) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientRemoteOverloaded, err)
}

// WrapPermanentConfig wraps an error as a permanent configuration error.
func WrapPermanentConfig(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanentConfig, err)
}

// WrapPermanentPrerequisitesMissing wraps an error as a permanent prerequisites missing error.
func WrapPermanentPrerequisitesMissing(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanentPrerequisitesMissing, err)
}

// IsTransient checks if an error is transient (should be retried).
// Returns true for transient connection or Kubernetes API errors.
func IsTransient(err error) bool {
	if IsPermanent(err) {
		return false
	}
	return IsTransientConnection(err) || IsTransientKubernetesAPI(err) || errors.Is(err, ErrTransientRemoteOverloaded)
}

// IsPermanent checks if an error is permanent (requires user intervention).
// Returns true for configuration, validation, convergence and prerequisites missing errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrPermanentConfig) ||
		errors.Is(err, ErrPermanentPrerequisitesMissing) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConvergenceTimeout)
}

// ShouldRequeue determines if an error should trigger a requeue.
// Transient errors should requeue; permanent errors should not.
// Returns (shouldRequeue, requeueAfter).
func ShouldRequeue(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}

	// Permanent errors should not requeue automatically
	if IsPermanent(err) {
		return false, 0
	}

	if IsTransient(err) {
		return true, constants.RequeueShort
	}

	// For unknown errors, default to requeue (controller-runtime will handle backoff)
	return true, 0
}

// IsForbiddenStatefulSetUpdate reports whether the API server rejected a
// StatefulSet replace because immutable spec fields changed.
func IsForbiddenStatefulSetUpdate(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), constants.ForbiddenStatefulSetUpdateMsg)
}
