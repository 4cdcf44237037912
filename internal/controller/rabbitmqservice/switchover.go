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
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	controllermetrics "github.com/netcracker/rabbitmq-operator/internal/controller"
	"github.com/netcracker/rabbitmq-operator/internal/disasterrecovery"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/logging"
)

// switchoverRequested reports whether the declared disaster recovery role
// differs from the recorded one. A changed switchoverRetry annotation forces a
// new run, and a run left "running" by a previous process is resumed.
func switchoverRequested(service *rabbitmqv2.RabbitMQService) bool {
	if service.Spec.DisasterRecovery == nil {
		return false
	}
	recorded := service.Status.DisasterRecoveryStatus
	if recorded == nil {
		return true
	}
	if recorded.Mode != service.Spec.DisasterRecovery.Mode || recorded.Status == rabbitmqv2.SwitchoverRunning {
		return true
	}
	return service.Annotations[rabbitmqv2.SwitchoverRetryAnnotation] != service.Status.ObservedSwitchoverRetry
}

// reconcileSwitchover runs a disaster recovery switchover. Its outcome lives in
// status.disasterRecoveryStatus; a failed switchover does not fail the pass.
func (r *RabbitMQServiceReconciler) reconcileSwitchover(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService) (ctrl.Result, error) {
	target := service.Spec.DisasterRecovery.DeepCopy()
	if target.Mode == "" {
		logger.Info("Disaster recovery section has no mode")
		r.Recorder.Event(service, corev1.EventTypeWarning, constants.ReasonSwitchoverFailed, constants.MessageDRModeMissing)
		return ctrl.Result{}, reconcile.TerminalError(operatorerrors.NewValidation(constants.MessageDRModeMissing))
	}

	var previous rabbitmqv2.DisasterRecoveryMode
	if recorded := service.Status.DisasterRecoveryStatus; recorded != nil {
		previous = recorded.Mode
	}
	retryMark := service.Annotations[rabbitmqv2.SwitchoverRetryAnnotation]
	logger = logger.WithValues("mode", target.Mode, "previousMode", previous)

	locks := r.lockGuard()
	acquired, err := locks.acquire(ctx, logger, service, rabbitmqv2.OperationSwitchover, "switching to "+string(target.Mode))
	if err != nil {
		return ctrl.Result{}, err
	}
	if !acquired {
		return ctrl.Result{RequeueAfter: constants.RequeueShort}, nil
	}
	defer locks.release(ctx, logger, service, rabbitmqv2.OperationSwitchover)

	started := disasterrecovery.Started(target.Mode)
	if err := r.statusWriter().update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		st.DisasterRecoveryStatus = started.DeepCopy()
		st.ObservedSwitchoverRetry = retryMark
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonSwitchover, constants.MessageSwitchoverStarted)

	daemon, err := r.Clients.BackupDaemon(ctx)
	if err != nil {
		return ctrl.Result{}, err
	}

	startTime := time.Now()
	outcome, err := disasterrecovery.New(daemon, r.State, r.Config.Timings, r.Config.DRRegion).Run(ctx, logger, previous, target)
	if err != nil {
		// Shutdown; the "running" status resumes the switchover on restart.
		return ctrl.Result{}, err
	}

	if err := r.statusWriter().update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		st.DisasterRecoveryStatus = outcome.DeepCopy()
	}); err != nil {
		return ctrl.Result{}, err
	}

	succeeded := outcome.Status == rabbitmqv2.SwitchoverDone
	logging.LogAuditEvent(logger, logging.EventSwitchover, map[string]string{
		"namespace":     service.Namespace,
		"name":          service.Name,
		"mode":          string(target.Mode),
		"previous_mode": string(previous),
		"status":        string(outcome.Status),
	})
	controllermetrics.NewServiceMetrics(service.Namespace, service.Name).
		RecordSwitchover(target.Mode, succeeded, time.Since(startTime).Seconds())
	if succeeded {
		r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonSwitchover, outcome.Message)
	} else {
		r.Recorder.Event(service, corev1.EventTypeWarning, constants.ReasonSwitchoverFailed, outcome.Message)
	}
	return ctrl.Result{}, nil
}
