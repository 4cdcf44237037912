// Package shovel watches the health of RabbitMQ shovels and restarts the
// shovel plugin on every node when too few of them are running.
package shovel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/controller"
	"github.com/netcracker/rabbitmq-operator/internal/logging"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
	"github.com/netcracker/rabbitmq-operator/internal/rabbitmq"
)

// Shell snippets run in one interactive session. The markers are printed
// through printf so the echoed command line never matches them.
const (
	disablePluginScript = `if rabbitmq-plugins list -E | grep -q rabbitmq_shovel; then ` +
		`if rabbitmq-plugins disable rabbitmq_shovel rabbitmq_shovel_management 2>&1 | grep -q "The following plugins have been disabled:"; then ` +
		`printf 'plugins %s\n' disabled; fi; fi`
	enablePluginScript = `if ! rabbitmq-plugins list -E | grep -q rabbitmq_shovel; then ` +
		`if rabbitmq-plugins enable rabbitmq_shovel rabbitmq_shovel_management 2>&1 | grep -q "The following plugins have been enabled:"; then ` +
		`printf 'plugins %s\n' enabled; fi; fi`

	markerDisabled = "plugins disabled"
	markerEnabled  = "plugins enabled"
)

// Checker evaluates shovel health through the management API.
type Checker interface {
	CheckShovels(ctx context.Context, logger logr.Logger, aliveRatio float64) rabbitmq.ShovelReport
}

// CheckerFactory builds a Checker for one service, with its current credentials.
type CheckerFactory func(ctx context.Context, service *rabbitmqv2.RabbitMQService) (Checker, error)

// Cluster is the orchestration surface used to restart the plugin.
type Cluster interface {
	RabbitMQPods(ctx context.Context) ([]corev1.Pod, error)
	ExecInteractive(ctx context.Context, pod string, commands []string, delay, maxDuration time.Duration) (string, error)
}

// PodsReady waits until every RabbitMQ container is ready.
type PodsReady interface {
	WaitContainersReady(ctx context.Context, logger logr.Logger) error
}

// Monitor periodically checks shovels of every RabbitMQService in the namespace.
type Monitor struct {
	reader     client.Reader
	namespace  string
	cluster    Cluster
	pods       PodsReady
	newChecker CheckerFactory
	timings    config.Timings
	aliveRatio float64
}

// NewMonitor returns a Monitor.
func NewMonitor(reader client.Reader, namespace string, cluster Cluster, pods PodsReady, newChecker CheckerFactory, timings config.Timings) *Monitor {
	return &Monitor{
		reader:     reader,
		namespace:  namespace,
		cluster:    cluster,
		pods:       pods,
		newChecker: newChecker,
		timings:    timings,
		aliveRatio: constants.ShovelAliveRatio,
	}
}

// Start runs the monitor on its cron schedule until ctx is done.
// It implements manager.Runnable.
func (m *Monitor) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("shovel-monitor")

	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(m.timings.ShovelSchedule, func() {
		m.RunOnce(log.IntoContext(ctx, logger))
	}); err != nil {
		return fmt.Errorf("invalid shovel monitor schedule %q: %w", m.timings.ShovelSchedule, err)
	}

	logger.Info("Starting shovel monitor", "schedule", m.timings.ShovelSchedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Shovel monitor stopped")
	return nil
}

// NeedLeaderElection restricts the monitor to the leader replica.
func (m *Monitor) NeedLeaderElection() bool {
	return true
}

// RunOnce checks every RabbitMQService once. Failures are logged.
func (m *Monitor) RunOnce(ctx context.Context) {
	logger := log.FromContext(ctx)

	var services rabbitmqv2.RabbitMQServiceList
	if err := m.reader.List(ctx, &services, client.InNamespace(m.namespace)); err != nil {
		logger.Error(err, "Failed to list RabbitMQ services")
		return
	}
	for i := range services.Items {
		service := &services.Items[i]
		serviceLogger := logger.WithValues("cluster_namespace", service.Namespace, "cluster_name", service.Name)
		if err := m.checkService(ctx, serviceLogger, service); err != nil {
			serviceLogger.Error(err, "Shovel monitoring failed")
		}
	}
}

func (m *Monitor) checkService(ctx context.Context, logger logr.Logger, service *rabbitmqv2.RabbitMQService) error {
	checker, err := m.newChecker(ctx, service)
	if err != nil {
		return err
	}
	metrics := controller.NewServiceMetrics(service.Namespace, service.Name)

	report := checker.CheckShovels(ctx, logger, m.aliveRatio)
	metrics.SetShovels(report.Total, report.Running, len(report.Invalid))
	if report.Healthy {
		logger.V(1).Info("Shovels are healthy", "total", report.Total, "running", report.Running)
		return nil
	}

	logger.Info("Some shovels are not running properly, restarting shovel plugin",
		"total", report.Total, "running", report.Running, "invalid", report.Invalid)
	err = m.restartPlugin(ctx, logger)
	metrics.RecordShovelRestart(err == nil)
	if err != nil {
		return err
	}

	report = checker.CheckShovels(ctx, logger, m.aliveRatio)
	metrics.SetShovels(report.Total, report.Running, len(report.Invalid))
	if !report.Healthy {
		logger.Info("Some shovels are not running properly after restart")
		return nil
	}
	logger.Info("All shovels are running properly after restart")
	return nil
}

// restartPlugin toggles the shovel plugin on every RabbitMQ pod in turn.
func (m *Monitor) restartPlugin(ctx context.Context, logger logr.Logger) error {
	if err := m.pods.WaitContainersReady(ctx, logger); err != nil {
		return fmt.Errorf("cannot restart shovel plugin because not all RabbitMQ pods are running: %w", err)
	}
	pods, err := m.cluster.RabbitMQPods(ctx)
	if err != nil {
		return err
	}

	for i := range pods {
		name := pods[i].Name
		attempt := 0
		err := poll.RetryPolicy{
			Attempts: m.timings.ShovelRestart.Attempts,
			Interval: m.timings.ShovelRestart.Interval,
		}.Do(ctx, func(ctx context.Context) error {
			attempt++
			err := m.restartInPod(ctx, name)
			if err != nil {
				logger.Info("Shovel plugin restart attempt failed", "pod", name, "attempt", attempt, "error", err.Error())
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to restart shovel plugin in pod %s after %d attempts: %w", name, attempt, err)
		}
		logging.LogAuditEvent(logger, logging.EventShovelRestart, map[string]string{"pod": name})
	}
	logger.Info("Shovel plugin restarted successfully")
	return nil
}

func (m *Monitor) restartInPod(ctx context.Context, pod string) error {
	pause := m.timings.ShovelPluginTogglePause
	out, err := m.cluster.ExecInteractive(ctx, pod,
		[]string{disablePluginScript, enablePluginScript},
		pause, 2*(m.timings.ExecRequestTimeout+pause))
	if err != nil {
		return err
	}
	if !strings.Contains(out, markerDisabled) {
		return fmt.Errorf("failed to disable shovel plugin in pod %s", pod)
	}
	if !strings.Contains(out, markerEnabled) {
		return fmt.Errorf("failed to enable shovel plugin in pod %s", pod)
	}
	return nil
}
