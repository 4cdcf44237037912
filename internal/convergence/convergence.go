// Package convergence waits for a RabbitMQ cluster to reach its declared
// shape and drives the pod-level restarts of a pass.
//
// Every wait is a bounded poll.Policy from config.Timings. Pod restarts are
// strictly sequential because later nodes rejoin through earlier ones.
package convergence

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// Cluster is the orchestration surface used while converging.
type Cluster interface {
	RabbitMQPods(ctx context.Context) ([]corev1.Pod, error)
	DeletePod(ctx context.Context, name string, opts ...client.DeleteOption) error
	ExecInPod(ctx context.Context, pod string, command []string) (string, error)
	GetDeployment(ctx context.Context, name string) (*appsv1.Deployment, error)
}

// Membership reports whether exactly replicas RabbitMQ nodes are running.
type Membership interface {
	ClusterAlive(ctx context.Context, logger logr.Logger, replicas int) bool
}

// Converger runs the waits and restarts of one pass.
type Converger struct {
	cluster    Cluster
	membership Membership
	timings    config.Timings
}

// New returns a Converger. membership may be nil for callers that never check it.
func New(cluster Cluster, membership Membership, timings config.Timings) *Converger {
	return &Converger{cluster: cluster, membership: membership, timings: timings}
}

// WaitPodsReady waits until replicas RabbitMQ pods exist and every container
// of every pod is ready.
func (c *Converger) WaitPodsReady(ctx context.Context, logger logr.Logger, replicas int) error {
	logger.Info("Checking RabbitMQ pods readiness")

	present := 0
	err := poll.Until(ctx, c.timings.PodPresence, func(ctx context.Context) (bool, error) {
		pods, err := c.cluster.RabbitMQPods(ctx)
		if err != nil {
			return false, err
		}
		present = len(pods)
		return present == replicas, nil
	})
	if err != nil {
		if errors.Is(err, poll.ErrExhausted) {
			logger.Info("There are not enough RabbitMQ pods", "specified", replicas, "present", present)
		}
		return c.timeout(ctx, constants.MessagePodsNotReady, err)
	}

	if err := c.WaitContainersReady(ctx, logger); err != nil {
		return err
	}
	logger.Info("RabbitMQ pods are ready")
	return nil
}

// WaitContainersReady waits until every container of every RabbitMQ pod is ready.
func (c *Converger) WaitContainersReady(ctx context.Context, logger logr.Logger) error {
	err := poll.Until(ctx, c.timings.PodReady, func(ctx context.Context) (bool, error) {
		pods, err := c.cluster.RabbitMQPods(ctx)
		if err != nil {
			return false, err
		}
		for i := range pods {
			if !containersReady(&pods[i]) {
				logger.V(1).Info("RabbitMQ pod is not ready yet", "pod", pods[i].Name)
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return c.timeout(ctx, constants.MessagePodsNotReady, err)
	}
	return nil
}

// containersReady reports whether pod has container statuses and all are ready.
func containersReady(pod *corev1.Pod) bool {
	if len(pod.Status.ContainerStatuses) == 0 {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}

// WaitMembership waits until the management API reports replicas running nodes.
func (c *Converger) WaitMembership(ctx context.Context, logger logr.Logger, replicas int) error {
	if c.membership == nil {
		return fmt.Errorf("cluster membership check is not configured")
	}
	err := poll.Until(ctx, c.timings.Membership, func(ctx context.Context) (bool, error) {
		return c.membership.ClusterAlive(ctx, logger, replicas), nil
	})
	if err != nil {
		return c.timeout(ctx, constants.MessageClusterNotUp, err)
	}
	logger.Info("RabbitMQ cluster is up", "replicas", replicas)
	return nil
}

// RollingRestart deletes replica pods 0..count-1 in order. In storage-class
// mode membership is verified after each deletion; in hostpath mode once
// after the last one.
func (c *Converger) RollingRestart(ctx context.Context, logger logr.Logger, hostpath bool, count, replicas int) error {
	for idx := 0; idx < count; idx++ {
		name := infra.PodName(hostpath, idx)
		if err := c.cluster.DeletePod(ctx, name); err != nil {
			return err
		}
		if !hostpath {
			if err := c.WaitMembership(ctx, logger, replicas); err != nil {
				return err
			}
		}
		logger.Info("Pod rebooted successfully", "pod", name)
	}
	if hostpath {
		return c.WaitMembership(ctx, logger, replicas)
	}
	return nil
}

// RestartCount caps a rolling restart at the smaller of the pod count seen
// before the pass and the declared replicas. oldPods of zero means no cap.
func RestartCount(oldPods, replicas int) int {
	if oldPods > 0 && oldPods < replicas {
		return oldPods
	}
	return replicas
}

// CleanVolumes marks each replica's data directory for wiping on the next
// start and deletes the pod.
func (c *Converger) CleanVolumes(ctx context.Context, logger logr.Logger, hostpath bool, replicas int) error {
	for idx := 0; idx < replicas; idx++ {
		name := infra.PodName(hostpath, idx)
		if _, err := c.cluster.ExecInPod(ctx, name, []string{"touch", constants.CleanVolumesFlagFile}); err != nil {
			return fmt.Errorf("failed to set clean volume flag in pod %s: %w", name, err)
		}
		if err := poll.Sleep(ctx, c.timings.CleanVolumePause); err != nil {
			return err
		}
		if err := c.cluster.DeletePod(ctx, name); err != nil {
			return err
		}
		logger.Info("Clean volume flag was set", "pod", name)
	}
	return nil
}

// EnableFeatureFlags enables every RabbitMQ feature flag through the first replica.
func (c *Converger) EnableFeatureFlags(ctx context.Context, logger logr.Logger, hostpath bool) error {
	pod := infra.PrimaryPodName(hostpath)
	if _, err := c.cluster.ExecInPod(ctx, pod, []string{"rabbitmqctl", "enable_feature_flag", "all"}); err != nil {
		return fmt.Errorf("failed to enable feature flags in pod %s: %w", pod, err)
	}
	logger.Info("Feature flags are enabled successfully")
	return nil
}

// RebootAll deletes every running RabbitMQ pod one at a time, in replica
// index order, and waits for cluster membership after each.
func (c *Converger) RebootAll(ctx context.Context, logger logr.Logger, replicas int) error {
	pods, err := c.cluster.RabbitMQPods(ctx)
	if err != nil {
		return err
	}
	type replicaPod struct {
		name  string
		index int
	}
	replicaPods := make([]replicaPod, 0, len(pods))
	for i := range pods {
		if idx, ok := infra.PodIndex(pods[i].Name); ok {
			replicaPods = append(replicaPods, replicaPod{name: pods[i].Name, index: idx})
		}
	}
	slices.SortFunc(replicaPods, func(a, b replicaPod) int { return cmp.Compare(a.index, b.index) })

	for _, replica := range replicaPods {
		name := replica.name
		if err := c.cluster.DeletePod(ctx, name); err != nil {
			return err
		}
		if err := c.WaitMembership(ctx, logger, replicas); err != nil {
			return err
		}
		logger.Info("Pod rebooted successfully", "pod", name)
	}
	return nil
}

func (c *Converger) timeout(ctx context.Context, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, poll.ErrExhausted) {
		return operatorerrors.NewConvergenceTimeout(message, err)
	}
	return err
}
