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
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	controllermetrics "github.com/netcracker/rabbitmq-operator/internal/controller"
	"github.com/netcracker/rabbitmq-operator/internal/convergence"
	"github.com/netcracker/rabbitmq-operator/internal/credentials"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
	"github.com/netcracker/rabbitmq-operator/internal/status"
)

// CredentialsReconciler watches the default secret and applies credential
// changes to the running cluster.
type CredentialsReconciler struct {
	client.Client
	APIReader client.Reader
	Recorder  record.EventRecorder
	Config    *config.OperatorConfig
	State     *kube.StateClient
	Clients   ServiceClients
}

func (r *CredentialsReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, reconcileErr error) {
	reconcileMetrics := controllermetrics.NewReconcileMetrics(req.Namespace, req.Name, constants.ControllerNameCredentials)
	startTime := time.Now()
	defer func() {
		reconcileMetrics.ObserveDuration(time.Since(startTime).Seconds())
		if reconcileErr != nil {
			reconcileMetrics.IncrementError(errorReason(reconcileErr))
		}
	}()

	logger := reconcileLogger(ctx, req, constants.ControllerNameCredentials)
	ctx = log.IntoContext(ctx, logger)

	// Give a concurrent spec change the chance to open its pass first.
	if err := poll.Sleep(ctx, r.Config.Timings.SecretSettleDelay); err != nil {
		return ctrl.Result{}, err
	}

	service, err := r.waitForIdleService(ctx, logger, req.Namespace)
	if err != nil || service == nil {
		return ctrl.Result{}, err
	}

	creds, err := r.State.ReadCredentials(ctx)
	if err != nil {
		logger.Info("Default secret is not usable, skipping credential check", "reason", err.Error())
		return ctrl.Result{}, nil
	}

	change, changed := credentials.Detect(service.Status.Credentials, creds)
	writer := statusWriter{client: r.Client, reader: r.APIReader}
	if service.Status.Credentials == nil {
		logger.Info("Recording credential baseline", "user", creds.User)
		return ctrl.Result{}, writer.update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
			st.Credentials = credentials.Baseline(creds)
		})
	}
	if !changed {
		logger.V(1).Info("Credentials unchanged")
		return ctrl.Result{}, nil
	}

	locks := lockGuard{client: r.Client, recorder: r.Recorder, holder: constants.ControllerNameCredentials}
	acquired, err := locks.acquire(ctx, logger, service, rabbitmqv2.OperationCredentialRotation, "rotating credentials")
	if err != nil {
		return ctrl.Result{}, err
	}
	if !acquired {
		return ctrl.Result{RequeueAfter: constants.RequeueShort}, nil
	}
	defer locks.release(ctx, logger, service, rabbitmqv2.OperationCredentialRotation)

	if err := writer.update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		status.Begin(st, constants.MessagePassStarted, metav1.Now())
	}); err != nil {
		return ctrl.Result{}, err
	}

	rotateErr := r.rotate(ctx, logger, service, change)
	if rotateErr != nil && interrupted(ctx, rotateErr) {
		logger.Error(rotateErr, "Credential rotation interrupted; it will be retried")
		return ctrl.Result{}, rotateErr
	}

	serviceMetrics := controllermetrics.NewServiceMetrics(service.Namespace, service.Name)
	serviceMetrics.RecordCredentialRotation(rotateErr == nil)
	if err := writer.update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		if rotateErr != nil {
			status.Fail(st, failureMessage(rotateErr), metav1.Now())
		} else {
			status.Succeed(st, constants.MessageCredentialsRotated, metav1.Now())
		}
		st.Credentials = credentials.Baseline(creds)
	}); err != nil {
		return ctrl.Result{}, err
	}

	if rotateErr != nil {
		serviceMetrics.SetCondition(rabbitmqv2.ConditionFailed)
		logger.Error(rotateErr, "Credential rotation failed")
		r.Recorder.Event(service, corev1.EventTypeWarning, constants.ReasonRotationFailed, failureMessage(rotateErr))
		return ctrl.Result{}, reconcile.TerminalError(rotateErr)
	}
	serviceMetrics.SetCondition(rabbitmqv2.ConditionSuccessful)
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonCredentialsRotated, constants.MessageCredentialsRotated)
	return ctrl.Result{}, nil
}

func (r *CredentialsReconciler) rotate(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService, change credentials.Change) error {
	mgmt, err := r.Clients.Management(ctx, service)
	if err != nil {
		return err
	}
	rmq := &service.Spec.RabbitMQ
	rebooter := convergence.New(r.State, mgmt, r.Config.Timings)
	return credentials.NewRotator(r.State, rebooter).Rotate(ctx, logger, rmq.HostpathConfiguration, rmq.ReplicaCount(), change)
}

// waitForIdleService returns the RabbitMQService once no pass is open. When
// the wait runs out it proceeds anyway. A missing service yields nil.
func (r *CredentialsReconciler) waitForIdleService(ctx context.Context, logger logr.Logger, namespace string) (*rabbitmqv2.RabbitMQService, error) {
	return idleService(ctx, logger, r.APIReader, namespace, r.Config.Timings.TerminalWait)
}

func idleService(ctx context.Context, logger logr.Logger, reader client.Reader, namespace string, wait poll.Policy) (*rabbitmqv2.RabbitMQService, error) {
	key := types.NamespacedName{Namespace: namespace, Name: constants.ServiceResourceName}
	service := &rabbitmqv2.RabbitMQService{}

	err := poll.Until(ctx, wait, func(ctx context.Context) (bool, error) {
		if err := reader.Get(ctx, key, service); err != nil {
			return false, err
		}
		last := status.Last(service.Status.Conditions)
		return last == nil || status.IsTerminal(last.Type), nil
	})
	switch {
	case err == nil:
		return service, nil
	case apierrors.IsNotFound(err):
		logger.Info("RabbitMQService not found, nothing to apply", "name", key.Name)
		return nil, nil
	case errors.Is(err, poll.ErrExhausted):
		logger.Info("RabbitMQService did not settle in time, proceeding")
		return service, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("failed to get RabbitMQService %s/%s: %w", key.Namespace, key.Name, err)
	}
}
