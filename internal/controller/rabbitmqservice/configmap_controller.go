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
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
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
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/logging"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
	"github.com/netcracker/rabbitmq-operator/internal/status"
)

// ConfigReloadReconciler restarts RabbitMQ pods one by one when the RabbitMQ
// configuration ConfigMap changes outside a reconciliation pass.
type ConfigReloadReconciler struct {
	client.Client
	APIReader client.Reader
	Recorder  record.EventRecorder
	Config    *config.OperatorConfig
	State     *kube.StateClient
	Clients   ServiceClients
}

func (r *ConfigReloadReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, reconcileErr error) {
	reconcileMetrics := controllermetrics.NewReconcileMetrics(req.Namespace, req.Name, constants.ControllerNameConfigReload)
	startTime := time.Now()
	defer func() {
		reconcileMetrics.ObserveDuration(time.Since(startTime).Seconds())
		if reconcileErr != nil {
			reconcileMetrics.IncrementError(errorReason(reconcileErr))
		}
	}()

	logger := reconcileLogger(ctx, req, constants.ControllerNameConfigReload)
	ctx = log.IntoContext(ctx, logger)

	data, found, err := r.State.ConfigMapData(ctx, req.Name)
	if err != nil || !found {
		return ctrl.Result{}, err
	}
	hash := ConfigHash(data)

	service := &rabbitmqv2.RabbitMQService{}
	if err := r.APIReader.Get(ctx, client.ObjectKey{Namespace: req.Namespace, Name: constants.ServiceResourceName}, service); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	writer := statusWriter{client: r.Client, reader: r.APIReader}
	recordHash := func() error {
		return writer.update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
			st.ConfigHash = hash
		})
	}

	switch service.Status.ConfigHash {
	case "":
		logger.Info("Recording configuration baseline")
		return ctrl.Result{}, recordHash()
	case hash:
		logger.V(1).Info("Configuration unchanged")
		return ctrl.Result{}, nil
	}

	// A pass that rewrote the ConfigMap restarts the pods itself; give it
	// time to open its condition entry.
	if err := poll.Sleep(ctx, r.Config.Timings.ConfigMapSettleDelay); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.APIReader.Get(ctx, client.ObjectKeyFromObject(service), service); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	rmq := &service.Spec.RabbitMQ
	if status.IsInProgress(&service.Status) || !rmq.AutoReboot {
		logger.Info("Configuration changed, no reboot needed",
			"passInProgress", status.IsInProgress(&service.Status), "autoReboot", rmq.AutoReboot)
		return ctrl.Result{}, recordHash()
	}

	locks := lockGuard{client: r.Client, recorder: r.Recorder, holder: constants.ControllerNameConfigReload}
	acquired, err := locks.acquire(ctx, logger, service, rabbitmqv2.OperationConfigReload, "rebooting pods for new configuration")
	if err != nil {
		return ctrl.Result{}, err
	}
	if !acquired {
		return ctrl.Result{RequeueAfter: constants.RequeueShort}, nil
	}
	defer locks.release(ctx, logger, service, rabbitmqv2.OperationConfigReload)

	mgmt, err := r.Clients.Management(ctx, service)
	if err != nil {
		return ctrl.Result{}, err
	}
	logger.Info("Configuration changed, rebooting RabbitMQ pods")
	rebootErr := convergence.New(r.State, mgmt, r.Config.Timings).RebootAll(ctx, logger, rmq.ReplicaCount())
	if rebootErr != nil && interrupted(ctx, rebootErr) {
		return ctrl.Result{}, rebootErr
	}

	logging.LogAuditEvent(logger, logging.EventPodReboot, map[string]string{
		"namespace": service.Namespace,
		"configmap": req.Name,
		"succeeded": strconv.FormatBool(rebootErr == nil),
	})
	if err := recordHash(); err != nil {
		return ctrl.Result{}, err
	}

	if rebootErr != nil {
		logger.Error(rebootErr, "Rebooting pods after configuration change failed")
		r.Recorder.Event(service, corev1.EventTypeWarning, constants.ReasonRebootFailed, failureMessage(rebootErr))
		return ctrl.Result{}, reconcile.TerminalError(rebootErr)
	}
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonPodsRebooted, "RabbitMQ pods were rebooted to apply the new configuration")
	return ctrl.Result{}, nil
}
