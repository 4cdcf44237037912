/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rabbitmqservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/operationlock"
)

// processStart is truncated to the precision metav1.Time keeps on the wire.
var processStart = metav1.NewTime(time.Now().Truncate(time.Second))

// statusWriter performs read-modify-write updates of the status subresource
// against the live object.
type statusWriter struct {
	client client.Client
	reader client.Reader
}

// update re-reads the service, applies mutate and writes the status back,
// retrying on conflicts. service is refreshed with the written object.
func (w statusWriter) update(ctx context.Context, service *rabbitmqv2.RabbitMQService, mutate func(*rabbitmqv2.RabbitMQServiceStatus)) error {
	key := types.NamespacedName{Namespace: service.Namespace, Name: service.Name}
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		latest := &rabbitmqv2.RabbitMQService{}
		if err := w.reader.Get(ctx, key, latest); err != nil {
			return err
		}
		mutate(&latest.Status)
		if err := w.client.Status().Update(ctx, latest); err != nil {
			return err
		}
		latest.DeepCopyInto(service)
		return nil
	})
	if err != nil {
		return operatorerrors.WrapTransientKubernetesAPI(
			fmt.Errorf("failed to update status of RabbitMQService %s/%s: %w", key.Namespace, key.Name, err))
	}
	return nil
}

// lockGuard acquires and releases the operation lock on behalf of one controller.
type lockGuard struct {
	client   client.Client
	recorder record.EventRecorder
	holder   string
}

// acquire takes the lock for op. It reports false when another operation
// holds it; that case also emits an event. A lock taken before this process
// started is abandoned and taken over.
func (g lockGuard) acquire(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService, op rabbitmqv2.ServiceOperation, message string) (bool, error) {
	opts := operationlock.AcquireOptions{Holder: g.holder, Operation: op, Message: message}
	err := operationlock.Acquire(ctx, g.client, service, opts)
	if operationlock.IsHeld(err) && abandoned(service.Status.OperationLock) {
		logger.Info("Taking over operation lock left by a previous operator process",
			"operation", service.Status.OperationLock.Operation, "holder", service.Status.OperationLock.Holder)
		opts.Force = true
		err = operationlock.Acquire(ctx, g.client, service, opts)
	}
	if operationlock.IsHeld(err) {
		logger.Info("Operation lock is held, requeueing", "operation", op, "reason", err.Error())
		g.recorder.Eventf(service, corev1.EventTypeNormal, constants.ReasonOperationLockHeld,
			"%s is waiting: %v", op, err)
		return false, nil
	}
	if err != nil {
		return false, operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to acquire operation lock: %w", err))
	}
	return true, nil
}

// release drops the lock for op, retrying transient API failures. A lock
// that still cannot be released is logged and left for the next acquisition
// by the same holder.
func (g lockGuard) release(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService, op rabbitmqv2.ServiceOperation) {
	// The pass context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	err := retry.OnError(retry.DefaultBackoff, operatorerrors.IsTransient, func() error {
		return operationlock.Release(ctx, g.client, service, g.holder, op)
	})
	if err != nil {
		logger.Error(err, "Failed to release operation lock", "operation", op)
	}
}

func abandoned(lock *rabbitmqv2.OperationLockStatus) bool {
	return lock != nil && lock.AcquiredAt != nil && lock.AcquiredAt.Before(&processStart)
}

// failureMessage is the condition message recorded for a failed operation.
func failureMessage(err error) string {
	if msg, ok := operatorerrors.StatusMessage(err); ok {
		return msg
	}
	return err.Error()
}

// interrupted reports whether err should leave the condition log untouched
// and be retried by the work queue.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || operatorerrors.IsTransient(err)
}

// errorReason classifies a reconcile error for the error counter.
func errorReason(err error) string {
	switch {
	case errors.Is(err, reconcile.TerminalError(nil)):
		return "Terminal"
	case operatorerrors.IsTransient(err):
		return "Transient"
	default:
		return "Error"
	}
}
