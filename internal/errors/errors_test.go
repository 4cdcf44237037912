package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var statefulSetsGR = schema.GroupResource{Group: "apps", Resource: "statefulsets"}

func TestIsTransientConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "sentinel error", err: ErrTransientConnection, want: true},
		{name: "wrapped sentinel error", err: fmt.Errorf("GET /api/nodes: %w", ErrTransientConnection), want: true},
		{name: "connection refused", err: errors.New("dial tcp 10.0.0.1:15672: connect: connection refused"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "no such host", err: errors.New("lookup rabbitmq.ns.svc: no such host"), want: true},
		{name: "broken pipe", err: errors.New("write: broken pipe"), want: true},
		{name: "dns error", err: &net.DNSError{Err: "server misbehaving", Name: "rabbitmq-backup-daemon"}, want: true},
		{name: "unrelated error", err: errors.New("unexpected status 404"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientConnection(tt.err); got != tt.want {
				t.Errorf("IsTransientConnection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransientKubernetesAPI(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "sentinel error", err: ErrTransientKubernetesAPI, want: true},
		{name: "too many requests", err: apierrors.NewTooManyRequests("slow down", 1), want: true},
		{name: "server timeout", err: apierrors.NewServerTimeout(statefulSetsGR, "update", 1), want: true},
		{name: "service unavailable", err: apierrors.NewServiceUnavailable("apiserver restarting"), want: true},
		{name: "conflict", err: apierrors.NewConflict(statefulSetsGR, "rmqlocal", errors.New("object was modified")), want: true},
		{name: "not found", err: apierrors.NewNotFound(statefulSetsGR, "rmqlocal"), want: false},
		{name: "forbidden", err: apierrors.NewForbidden(statefulSetsGR, "rmqlocal", errors.New("rbac")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientKubernetesAPI(tt.err); got != tt.want {
				t.Errorf("IsTransientKubernetesAPI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapTransientRemoteOverloaded(t *testing.T) {
	if WrapTransientRemoteOverloaded(nil) != nil {
		t.Fatal("WrapTransientRemoteOverloaded(nil) should be nil")
	}

	wrapped := WrapTransientRemoteOverloaded(errors.New("status 503"))
	if !errors.Is(wrapped, ErrTransientRemoteOverloaded) {
		t.Errorf("wrapped error should match ErrTransientRemoteOverloaded")
	}
	if again := WrapTransientRemoteOverloaded(wrapped); again != wrapped {
		t.Errorf("wrapping twice should return the same error")
	}
	if !IsTransient(wrapped) {
		t.Errorf("remote overload should be transient")
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		kind        error
		wantMessage string
	}{
		{
			name:        "validation",
			err:         NewValidation("Hostpath configuration in IPv6 environment is not supported"),
			kind:        ErrValidation,
			wantMessage: "Hostpath configuration in IPv6 environment is not supported",
		},
		{
			name:        "prerequisites missing",
			err:         NewPrerequisitesMissing("please create RabbitMQ secret"),
			kind:        ErrPermanentPrerequisitesMissing,
			wantMessage: "please create RabbitMQ secret",
		},
		{
			name:        "convergence timeout with cause",
			err:         NewConvergenceTimeout("RabbitMQ cluster fails to come up", context.DeadlineExceeded),
			kind:        ErrConvergenceTimeout,
			wantMessage: "RabbitMQ cluster fails to come up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if !IsPermanent(tt.err) {
				t.Errorf("IsPermanent() = false, want true")
			}
			if IsTransient(tt.err) {
				t.Errorf("IsTransient() = true, want false")
			}
			msg, ok := StatusMessage(fmt.Errorf("pass aborted: %w", tt.err))
			if !ok || msg != tt.wantMessage {
				t.Errorf("StatusMessage() = %q, %v; want %q", msg, ok, tt.wantMessage)
			}
		})
	}
}

func TestConvergenceTimeoutKeepsCause(t *testing.T) {
	err := NewConvergenceTimeout("RabbitMQ pods are not ready", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause should be reachable through errors.Is")
	}
}

func TestDisasterRecoveryError(t *testing.T) {
	err := fmt.Errorf("restore: %w", NewDisasterRecovery("can not restore last full backup"))
	if !IsDisasterRecovery(err) {
		t.Fatal("IsDisasterRecovery() = false")
	}
	var drErr *DisasterRecoveryError
	if !errors.As(err, &drErr) || drErr.Message != "can not restore last full backup" {
		t.Errorf("unexpected DisasterRecoveryError: %#v", drErr)
	}
	if IsDisasterRecovery(errors.New("plain")) {
		t.Errorf("plain error is not a DisasterRecoveryError")
	}
}

func TestIsForbiddenStatefulSetUpdate(t *testing.T) {
	invalid := apierrors.NewInvalid(
		schema.GroupKind{Group: "apps", Kind: "StatefulSet"}, "rmqlocal", nil)
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{
			name: "immutable field change",
			err: errors.New(`StatefulSet.apps "rmqlocal" is invalid: spec: Forbidden: updates to statefulset spec for fields ` +
				`other than 'replicas', 'ordinals', 'template', 'updateStrategy' are forbidden`),
			want: true,
		},
		{name: "other invalid", err: invalid, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsForbiddenStatefulSetUpdate(tt.err); got != tt.want {
				t.Errorf("IsForbiddenStatefulSetUpdate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRequeue bool
		wantAfter   time.Duration
	}{
		{name: "nil error", err: nil},
		{name: "transient connection", err: ErrTransientConnection, wantRequeue: true, wantAfter: 5 * time.Second},
		{name: "transient K8s API", err: ErrTransientKubernetesAPI, wantRequeue: true, wantAfter: 5 * time.Second},
		{name: "remote overload", err: WrapTransientRemoteOverloaded(errors.New("429")), wantRequeue: true, wantAfter: 5 * time.Second},
		{name: "validation", err: NewValidation("bad spec")},
		{
			name: "convergence timeout wrapping a transient cause",
			err:  NewConvergenceTimeout("RabbitMQ cluster fails to come up", errors.New("i/o timeout")),
		},
		{name: "permanent config", err: ErrPermanentConfig},
		{name: "unknown error", err: errors.New("unknown error"), wantRequeue: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotRequeue, gotAfter := ShouldRequeue(tt.err)
			if gotRequeue != tt.wantRequeue {
				t.Errorf("ShouldRequeue() requeue = %v, want %v", gotRequeue, tt.wantRequeue)
			}
			if gotAfter != tt.wantAfter {
				t.Errorf("ShouldRequeue() after = %v, want %v", gotAfter, tt.wantAfter)
			}
		})
	}
}

func TestIsTransientConnection_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if !IsTransientConnection(ctx.Err()) {
		t.Errorf("context deadline should be treated as a transient connection error")
	}
}
