// Package operationlock serializes the workflows that mutate one RabbitMQ
// cluster (reconcile pass, switchover, credential rotation, config reload).
//
// The lock lives on RabbitMQService.Status.OperationLock so it survives
// operator restarts. Holders are stable controller names: a restarted
// controller re-acquires its own lock instead of waiting on itself. There is
// no expiry; Force is the only way to take over a lock held by someone else.
package operationlock

import (
	"context"
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

var (
	// ErrLockHeld indicates an operation lock is held by another operation/holder.
	ErrLockHeld = errors.New("operation lock is held by another operation")
)

// AcquireOptions configures lock acquisition behavior.
type AcquireOptions struct {
	// Holder is a stable identifier for the lock holder (controller name).
	Holder string
	// Operation is the workflow requesting the lock.
	Operation rabbitmqv2.ServiceOperation
	// Message provides human-readable context (optional).
	Message string
	// Force overwrites a lock held by another holder.
	Force bool
}

// HeldError describes the lock that blocked an acquisition.
type HeldError struct {
	Operation rabbitmqv2.ServiceOperation
	Holder    string
	Message   string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("%s: operation=%q holder=%q message=%q", ErrLockHeld, e.Operation, e.Holder, e.Message)
}

func (e *HeldError) Unwrap() error {
	return ErrLockHeld
}

// IsHeld reports whether err was caused by a lock held elsewhere.
func IsHeld(err error) bool {
	return errors.Is(err, ErrLockHeld)
}

// Acquire ensures service holds the lock for opts.Operation and persists it
// through a status patch.
func Acquire(ctx context.Context, c client.Client, service *rabbitmqv2.RabbitMQService, opts AcquireOptions) error {
	if service == nil {
		return fmt.Errorf("service is required")
	}
	if opts.Holder == "" {
		return fmt.Errorf("holder is required")
	}
	if opts.Operation == "" {
		return fmt.Errorf("operation is required")
	}

	now := metav1.Now()
	current := service.Status.OperationLock

	var desired *rabbitmqv2.OperationLockStatus
	switch {
	case current == nil, opts.Force:
		desired = &rabbitmqv2.OperationLockStatus{
			Operation:  opts.Operation,
			Holder:     opts.Holder,
			Message:    opts.Message,
			AcquiredAt: &now,
		}
	case current.Operation == opts.Operation && current.Holder == opts.Holder:
		desired = current.DeepCopy()
		desired.Message = opts.Message
		if desired.AcquiredAt == nil {
			desired.AcquiredAt = &now
		}
	default:
		return &HeldError{
			Operation: current.Operation,
			Holder:    current.Holder,
			Message:   current.Message,
		}
	}

	if err := patchStatus(ctx, c, service, desired); err != nil {
		return err
	}
	service.Status.OperationLock = desired
	return nil
}

// Release clears the lock if it is held by holder for operation.
// If the lock is held by someone else, Release returns a HeldError.
func Release(ctx context.Context, c client.Client, service *rabbitmqv2.RabbitMQService, holder string, operation rabbitmqv2.ServiceOperation) error {
	if service == nil {
		return fmt.Errorf("service is required")
	}
	if holder == "" {
		return fmt.Errorf("holder is required")
	}
	if operation == "" {
		return fmt.Errorf("operation is required")
	}

	current := service.Status.OperationLock
	if current == nil {
		return nil
	}
	if current.Operation != operation || current.Holder != holder {
		return &HeldError{
			Operation: current.Operation,
			Holder:    current.Holder,
			Message:   current.Message,
		}
	}

	if err := patchStatus(ctx, c, service, nil); err != nil {
		return err
	}
	service.Status.OperationLock = nil
	return nil
}

func patchStatus(ctx context.Context, c client.Client, service *rabbitmqv2.RabbitMQService, desired *rabbitmqv2.OperationLockStatus) error {
	original := service.DeepCopy()
	toPatch := service.DeepCopy()
	toPatch.Status.OperationLock = desired

	if err := c.Status().Patch(ctx, toPatch, client.MergeFrom(original)); err != nil {
		return fmt.Errorf("failed to patch operation lock status: %w", err)
	}
	// Later patches in the same pass need the new resourceVersion.
	service.ResourceVersion = toPatch.ResourceVersion
	return nil
}
