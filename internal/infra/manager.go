package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
)

// Manager applies a rendered Topology to the cluster.
type Manager struct {
	state *kube.StateClient
}

// NewManager constructs a Manager that writes through the given state client.
func NewManager(state *kube.StateClient) *Manager {
	return &Manager{state: state}
}

// Apply converges the cluster to topo. Objects are applied in dependency
// order: hostpath claims, StatefulSets, stale hostpath replicas, services,
// then telegraf. The first failure aborts the apply.
func (m *Manager) Apply(ctx context.Context, logger logr.Logger, topo *Topology) error {
	for _, pvc := range topo.PVCs {
		created, err := m.state.CreateIfAbsent(ctx, pvc)
		if err != nil {
			return fmt.Errorf("failed to ensure PersistentVolumeClaim %s: %w", pvc.Name, err)
		}
		if created {
			logger.Info("Created PersistentVolumeClaim", "name", pvc.Name)
		}
	}

	for _, sts := range topo.StatefulSets {
		if err := m.state.CreateOrUpdate(ctx, sts); err != nil {
			return fmt.Errorf("failed to apply StatefulSet %s: %w", sts.Name, err)
		}
		logger.V(1).Info("Applied StatefulSet", "name", sts.Name)
	}

	if topo.Hostpath {
		if err := m.removeStaleHostpathReplicas(ctx, logger, len(topo.StatefulSets)); err != nil {
			return err
		}
	}

	services := append([]*corev1.Service{}, topo.LocalServices...)
	services = append(services, topo.ExternalService)
	if topo.NodePortService != nil {
		services = append(services, topo.NodePortService)
	}
	for _, svc := range services {
		if err := m.state.CreateOrUpdate(ctx, svc); err != nil {
			return fmt.Errorf("failed to apply Service %s: %w", svc.Name, err)
		}
		logger.V(1).Info("Applied Service", "name", svc.Name)
	}

	if topo.Telegraf != nil {
		if err := m.state.CreateOrUpdate(ctx, topo.Telegraf); err != nil {
			return fmt.Errorf("failed to apply telegraf Deployment: %w", err)
		}
		if err := m.restartTelegraf(ctx); err != nil {
			return err
		}
	}
	return nil
}

// restartTelegraf deletes telegraf pods so they pick up the current
// monitoring credentials.
func (m *Manager) restartTelegraf(ctx context.Context) error {
	pods, err := m.state.ListPods(ctx, map[string]string{constants.LabelName: constants.TelegrafName})
	if err != nil {
		return err
	}
	for i := range pods {
		if err := m.state.DeletePod(ctx, pods[i].Name); err != nil {
			return err
		}
	}
	return nil
}

// removeStaleHostpathReplicas deletes the StatefulSets, services and pods of
// hostpath replicas with an index at or beyond replicas. Claims are kept so
// the data survives a later scale up.
func (m *Manager) removeStaleHostpathReplicas(ctx context.Context, logger logr.Logger, replicas int) error {
	stale := func(name string, suffix string) bool {
		idx, ok := hostpathIndex(strings.TrimSuffix(name, suffix))
		return ok && idx >= replicas
	}

	statefulSets := &appsv1.StatefulSetList{}
	if err := m.state.ListByLabel(ctx, statefulSets, nil); err != nil {
		return err
	}
	for i := range statefulSets.Items {
		sts := &statefulSets.Items[i]
		if !IsHostpathStatefulSetName(sts.Name) || !stale(sts.Name, "") {
			continue
		}
		logger.Info("Deleting StatefulSet of removed replica", "name", sts.Name)
		if err := m.state.DeleteIfPresent(ctx, sts); err != nil {
			return err
		}
	}

	services := &corev1.ServiceList{}
	if err := m.state.ListByLabel(ctx, services, nil); err != nil {
		return err
	}
	for i := range services.Items {
		svc := &services.Items[i]
		if !IsHostpathServiceName(svc.Name) || !stale(svc.Name, constants.HostpathPodNameSuffix) {
			continue
		}
		logger.Info("Deleting Service of removed replica", "name", svc.Name)
		if err := m.state.DeleteIfPresent(ctx, svc); err != nil {
			return err
		}
	}

	pods, err := m.state.RabbitMQPods(ctx)
	if err != nil {
		return err
	}
	for i := range pods {
		if !hostpathPodPattern.MatchString(pods[i].Name) || !stale(pods[i].Name, constants.HostpathPodNameSuffix) {
			continue
		}
		logger.Info("Deleting pod of removed replica", "name", pods[i].Name)
		if err := m.state.DeletePod(ctx, pods[i].Name); err != nil {
			return err
		}
	}
	return nil
}

// hostpathIndex extracts idx from a "rmqlocal-{idx}" name.
func hostpathIndex(name string) (int, bool) {
	rest, found := strings.CutPrefix(name, constants.StatefulSetName+"-")
	if !found {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return idx, true
}
