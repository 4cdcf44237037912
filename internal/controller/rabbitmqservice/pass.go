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
	"strings"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	controllermetrics "github.com/netcracker/rabbitmq-operator/internal/controller"
	"github.com/netcracker/rabbitmq-operator/internal/convergence"
	"github.com/netcracker/rabbitmq-operator/internal/credentials"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
	"github.com/netcracker/rabbitmq-operator/internal/status"
)

// passKind tells a first installation from a change to a running cluster.
type passKind string

const (
	passCreate passKind = "create"
	passUpdate passKind = "update"
)

func (k passKind) successMessage(tested bool) string {
	switch {
	case k == passCreate && tested:
		return constants.MessageInstalledTested
	case k == passCreate:
		return constants.MessageInstalled
	case tested:
		return constants.MessageUpdatedTested
	default:
		return constants.MessageUpdated
	}
}

// passInput is what a pass knows about the cluster before it touches it.
type passInput struct {
	kind          passKind
	existedBefore bool
	oldPods       int
}

// reconcilePass runs a reconciliation pass when the spec changed since the
// last one. The outcome is recorded in the condition log together with the
// spec hash, so a failed spec is not retried until it changes again.
func (r *RabbitMQServiceReconciler) reconcilePass(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService) (ctrl.Result, error) {
	hash, err := SpecHash(&service.Spec)
	if err != nil {
		return ctrl.Result{}, reconcile.TerminalError(err)
	}
	if hash == service.Status.ObservedSpecHash {
		logger.V(1).Info("Spec unchanged since the last pass")
		return ctrl.Result{}, nil
	}

	in, err := r.inspectCluster(ctx, service)
	if err != nil {
		return ctrl.Result{}, err
	}

	locks := r.lockGuard()
	acquired, err := locks.acquire(ctx, logger, service, rabbitmqv2.OperationReconcile, "reconciling spec")
	if err != nil {
		return ctrl.Result{}, err
	}
	if !acquired {
		return ctrl.Result{RequeueAfter: constants.RequeueShort}, nil
	}
	defer locks.release(ctx, logger, service, rabbitmqv2.OperationReconcile)

	if err := r.statusWriter().update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		status.Begin(st, constants.MessagePassStarted, metav1.Now())
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonPassStarted, constants.MessagePassStarted)
	logger.Info("Starting reconciliation pass", "kind", in.kind, "existedBefore", in.existedBefore, "pods", in.oldPods)

	message, passErr := r.runPass(ctx, logger, service, in)
	return r.finishPass(ctx, logger, service, hash, message, passErr)
}

// inspectCluster classifies the pass from what already runs in the namespace.
func (r *RabbitMQServiceReconciler) inspectCluster(ctx context.Context, service *rabbitmqv2.RabbitMQService) (passInput, error) {
	sets := &appsv1.StatefulSetList{}
	if err := r.State.ListByLabel(ctx, sets, map[string]string{constants.LabelApp: constants.LabelValueRMQLocal}); err != nil {
		return passInput{}, err
	}
	pods, err := r.State.RabbitMQPods(ctx)
	if err != nil {
		return passInput{}, err
	}

	in := passInput{
		kind:          passUpdate,
		existedBefore: len(sets.Items) > 0,
		oldPods:       len(pods),
	}
	if service.Status.ObservedSpecHash == "" && !in.existedBefore {
		in.kind = passCreate
	}
	return in, nil
}

func (r *RabbitMQServiceReconciler) runPass(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService, in passInput) (string, error) {
	spec := &service.Spec
	rmq := &spec.RabbitMQ

	if in.kind == passUpdate && spec.RunTests() && spec.RunTestsOnly() {
		logger.Info("Only integration tests were requested")
		return r.awaitTests(ctx, logger, spec, in.kind, convergence.New(r.State, nil, r.Config.Timings))
	}

	if err := infra.Validate(spec); err != nil {
		return "", err
	}
	if in.kind == passUpdate {
		if err := r.checkStorageMode(ctx, rmq); err != nil {
			return "", err
		}
	}
	if _, err := r.State.ReadCredentials(ctx); err != nil {
		return "", err
	}

	topo, err := infra.Build(infra.BuildInput{Spec: spec, Namespace: service.Namespace, Logger: logger})
	if err != nil {
		return "", err
	}
	if err := r.Infra.Apply(ctx, logger, topo); err != nil {
		return "", err
	}

	mgmt, err := r.Clients.Management(ctx, service)
	if err != nil {
		return "", err
	}
	conv := convergence.New(r.State, mgmt, r.Config.Timings)
	replicas := rmq.ReplicaCount()
	hostpath := rmq.HostpathConfiguration
	restartable := in.kind == passUpdate || in.existedBefore
	clean := rmq.CleanRabbitMQPVs && restartable

	if clean {
		if err := conv.CleanVolumes(ctx, logger, hostpath, replicas); err != nil {
			return "", err
		}
	}

	switch {
	case !rmq.AutoReboot:
		if err := conv.WaitPodsReady(ctx, logger, replicas); err != nil {
			return "", err
		}
		if err := conv.WaitMembership(ctx, logger, replicas); err != nil {
			return "", err
		}
	case restartable && !clean:
		count := replicas
		if in.kind == passUpdate {
			count = convergence.RestartCount(in.oldPods, replicas)
		}
		if err := conv.RollingRestart(ctx, logger, hostpath, count, replicas); err != nil {
			return "", err
		}
	default:
		if err := conv.WaitPodsReady(ctx, logger, replicas); err != nil {
			return "", err
		}
	}

	if err := conv.EnableFeatureFlags(ctx, logger, hostpath); err != nil {
		return "", err
	}

	if r.Config.BackupDaemonEnabled && spec.DisasterRecoveryMode() != rabbitmqv2.DisasterRecoveryModeStandby {
		daemon, err := r.Clients.BackupDaemon(ctx)
		if err != nil {
			return "", err
		}
		if err := conv.BackupDaemonGate(ctx, logger, daemon, podReadinessTimeout(spec)); err != nil {
			return "", err
		}
	}

	return r.awaitTests(ctx, logger, spec, in.kind, conv)
}

func (r *RabbitMQServiceReconciler) awaitTests(ctx context.Context, logger logr.Logger, spec *rabbitmqv2.RabbitMQServiceSpec, kind passKind, conv *convergence.Converger) (string, error) {
	if !spec.RunTests() || !spec.WaitTestResult() {
		return kind.successMessage(false), nil
	}
	passed, err := conv.WaitTests(ctx, logger, testTimeout(spec))
	if err != nil {
		return "", err
	}
	if !passed {
		return "", operatorerrors.NewConvergenceTimeout(constants.MessageTestsFailed, nil)
	}
	return kind.successMessage(true), nil
}

// checkStorageMode rejects switching between hostpath and storage-class mode
// on a running cluster. The installed mode is read from the rendered
// configuration; without it there is nothing to compare against.
func (r *RabbitMQServiceReconciler) checkStorageMode(ctx context.Context, rmq *rabbitmqv2.RabbitMQSpec) error {
	data, found, err := r.State.ConfigMapData(ctx, constants.ConfigMapName)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	installedHostpath := strings.Contains(data[constants.RabbitMQConfKey], constants.InstalledHostpathMark)
	if installedHostpath != rmq.HostpathConfiguration {
		return operatorerrors.NewValidation(constants.MessageStorageModeChanged)
	}
	return nil
}

func (r *RabbitMQServiceReconciler) finishPass(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService, hash, message string, passErr error) (ctrl.Result, error) {
	if passErr != nil && interrupted(ctx, passErr) {
		logger.Error(passErr, "Reconciliation pass interrupted; it will be retried")
		return ctrl.Result{}, passErr
	}

	serviceMetrics := controllermetrics.NewServiceMetrics(service.Namespace, service.Name)
	if passErr != nil {
		failure := failureMessage(passErr)
		logger.Error(passErr, "Reconciliation pass failed", "message", failure)
		if err := r.statusWriter().update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
			status.Fail(st, failure, metav1.Now())
			st.ObservedSpecHash = hash
		}); err != nil {
			return ctrl.Result{}, err
		}
		serviceMetrics.SetCondition(rabbitmqv2.ConditionFailed)
		r.Recorder.Event(service, corev1.EventTypeWarning, constants.ReasonPassFailed, failure)
		// Let watchers observe the Failed entry before the lock is released.
		_ = poll.Sleep(ctx, r.Config.Timings.FailedStatusSettle)
		return ctrl.Result{}, reconcile.TerminalError(passErr)
	}

	baseline := r.baselines(ctx, logger, service)
	if err := r.statusWriter().update(ctx, service, func(st *rabbitmqv2.RabbitMQServiceStatus) {
		status.Succeed(st, message, metav1.Now())
		st.ObservedSpecHash = hash
		if st.Credentials == nil {
			st.Credentials = baseline.Credentials
		}
		if st.ConfigHash == "" {
			st.ConfigHash = baseline.ConfigHash
		}
	}); err != nil {
		return ctrl.Result{}, err
	}
	serviceMetrics.SetCondition(rabbitmqv2.ConditionSuccessful)
	r.Recorder.Event(service, corev1.EventTypeNormal, constants.ReasonPassSucceeded, message)
	logger.Info("Reconciliation pass completed", "message", message)
	return ctrl.Result{}, nil
}

// baselines captures the credentials and configuration a successful pass
// left running, for services whose secret or ConfigMap watch fired before the
// service existed. Only missing baselines are filled in.
func (r *RabbitMQServiceReconciler) baselines(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService) rabbitmqv2.RabbitMQServiceStatus {
	var out rabbitmqv2.RabbitMQServiceStatus
	if service.Status.Credentials == nil {
		if creds, err := r.State.ReadCredentials(ctx); err == nil {
			out.Credentials = credentials.Baseline(creds)
		} else {
			logger.V(1).Info("No credential baseline recorded", "reason", err.Error())
		}
	}
	if service.Status.ConfigHash == "" {
		if data, found, err := r.State.ConfigMapData(ctx, constants.ConfigMapName); err == nil && found {
			out.ConfigHash = ConfigHash(data)
		}
	}
	return out
}

func podReadinessTimeout(spec *rabbitmqv2.RabbitMQServiceSpec) time.Duration {
	if spec.Global != nil && spec.Global.PodReadinessTimeout != nil && *spec.Global.PodReadinessTimeout > 0 {
		return time.Duration(*spec.Global.PodReadinessTimeout) * time.Second
	}
	return constants.DefaultBackupDaemonTTL
}

func testTimeout(spec *rabbitmqv2.RabbitMQServiceSpec) time.Duration {
	if spec.Tests != nil && spec.Tests.Timeout != nil && *spec.Tests.Timeout > 0 {
		return time.Duration(*spec.Tests.Timeout) * time.Second
	}
	return constants.DefaultTestTimeout
}
