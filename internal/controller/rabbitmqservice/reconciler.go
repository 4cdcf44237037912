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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	controllermetrics "github.com/netcracker/rabbitmq-operator/internal/controller"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/logging"
)

// RabbitMQServiceReconciler reconciles a RabbitMQService object: it runs
// disaster recovery switchovers and reconciliation passes, and tears the
// managed resources down when the service is deleted.
type RabbitMQServiceReconciler struct {
	client.Client
	// APIReader bypasses the cache. Status and lock decisions read through it.
	APIReader client.Reader
	Scheme    *runtime.Scheme
	Recorder  record.EventRecorder
	Config    *config.OperatorConfig
	State     *kube.StateClient
	Infra     *infra.Manager
	Clients   ServiceClients
}

// RBAC is namespace-scoped and shipped with the deployment manifests.

// Reconcile is part of the main Kubernetes reconciliation loop which aims to
// move the current state of the cluster closer to the desired state.
// For more details, check Reconcile and its Result here:
// - https://pkg.go.dev/sigs.k8s.io/controller-runtime@v0.22.4/pkg/reconcile
func (r *RabbitMQServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, reconcileErr error) {
	reconcileMetrics := controllermetrics.NewReconcileMetrics(req.Namespace, req.Name, constants.ControllerNameRabbitMQService)
	startTime := time.Now()
	defer func() {
		reconcileMetrics.ObserveDuration(time.Since(startTime).Seconds())
		if reconcileErr != nil {
			reconcileMetrics.IncrementError(errorReason(reconcileErr))
		}
	}()

	logger := reconcileLogger(ctx, req, constants.ControllerNameRabbitMQService)
	ctx = log.IntoContext(ctx, logger)
	logger.Info("Reconciling RabbitMQService")

	service := &rabbitmqv2.RabbitMQService{}
	if err := r.APIReader.Get(ctx, req.NamespacedName, service); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("RabbitMQService resource not found; assuming it was deleted")
			controllermetrics.NewServiceMetrics(req.Namespace, req.Name).Clear()
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("failed to get RabbitMQService %s/%s: %w", req.Namespace, req.Name, err)
	}

	if !service.DeletionTimestamp.IsZero() {
		logger.Info("RabbitMQService is marked for deletion")
		return ctrl.Result{}, r.handleDeletion(ctx, logger, service)
	}

	if r.Config.DeleteResources && !controllerutil.ContainsFinalizer(service, rabbitmqv2.RabbitMQServiceFinalizer) {
		controllerutil.AddFinalizer(service, rabbitmqv2.RabbitMQServiceFinalizer)
		if err := r.Update(ctx, service); err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to add finalizer to RabbitMQService %s/%s: %w", service.Namespace, service.Name, err)
		}
		// The finalizer update triggers the next reconcile.
		return ctrl.Result{}, nil
	}

	if switchoverRequested(service) {
		res, err := r.reconcileSwitchover(ctx, logger, service)
		if err != nil || !res.IsZero() {
			return res, err
		}
		if err := r.APIReader.Get(ctx, req.NamespacedName, service); err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to get RabbitMQService %s/%s: %w", req.Namespace, req.Name, err)
		}
	}

	return r.reconcilePass(ctx, logger, service)
}

func (r *RabbitMQServiceReconciler) handleDeletion(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService) error {
	if !controllerutil.ContainsFinalizer(service, rabbitmqv2.RabbitMQServiceFinalizer) {
		return nil
	}

	if err := r.Infra.Teardown(ctx, logger, &service.Spec.RabbitMQ); err != nil {
		return fmt.Errorf("failed to delete resources of RabbitMQService %s/%s: %w", service.Namespace, service.Name, err)
	}
	logging.LogAuditEvent(logger, logging.EventResourceCleanup, map[string]string{
		"namespace": service.Namespace,
		"name":      service.Name,
	})
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonResourcesDeleted, "Managed RabbitMQ resources were deleted")
	controllermetrics.NewServiceMetrics(service.Namespace, service.Name).Clear()

	controllerutil.RemoveFinalizer(service, rabbitmqv2.RabbitMQServiceFinalizer)
	if err := r.Update(ctx, service); err != nil {
		return fmt.Errorf("failed to remove finalizer from RabbitMQService %s/%s: %w", service.Namespace, service.Name, err)
	}
	return nil
}

func (r *RabbitMQServiceReconciler) statusWriter() statusWriter {
	return statusWriter{client: r.Client, reader: r.APIReader}
}

func (r *RabbitMQServiceReconciler) lockGuard() lockGuard {
	return lockGuard{client: r.Client, recorder: r.Recorder, holder: constants.ControllerNameRabbitMQService}
}

// reconcileLogger tags the request logger the way every controller here does.
func reconcileLogger(ctx context.Context, req ctrl.Request, controllerName string) logr.Logger {
	return log.FromContext(ctx).WithValues(
		"cluster_namespace", req.Namespace,
		"cluster_name", req.Name,
		"controller", controllerName,
		"reconcile_id", uuid.NewString(),
	)
}
