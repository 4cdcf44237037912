package infra

import (
	"fmt"
	"regexp"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

var (
	// storageClassPodPattern matches pods of the single storage-class StatefulSet.
	storageClassPodPattern = regexp.MustCompile(`^rmqlocal-[0-9]+$`)
	// hostpathPodPattern matches pods, and per-node services, of hostpath StatefulSets.
	hostpathPodPattern = regexp.MustCompile(`^rmqlocal-[0-9]+-0$`)
	// hostpathStatefulSetPattern matches hostpath StatefulSet names.
	hostpathStatefulSetPattern = storageClassPodPattern
)

// Topology is the desired set of objects for one RabbitMQService. It is
// derived from the spec on every pass and never persisted.
type Topology struct {
	Hostpath        bool
	StatefulSets    []*appsv1.StatefulSet
	LocalServices   []*corev1.Service
	ExternalService *corev1.Service
	NodePortService *corev1.Service
	Telegraf        *appsv1.Deployment
	// PVCs holds the hostpath claims. They are created once and never updated.
	PVCs []*corev1.PersistentVolumeClaim
}

// BuildInput carries everything Build needs.
type BuildInput struct {
	Spec      *rabbitmqv2.RabbitMQServiceSpec
	Namespace string
	// Logger receives warnings about malformed environment entries.
	Logger logr.Logger
}

// Build renders the desired topology. It is pure and deterministic: equal
// inputs yield equal topologies.
func Build(in BuildInput) (*Topology, error) {
	if err := Validate(in.Spec); err != nil {
		return nil, err
	}
	spec := in.Spec
	rmq := &spec.RabbitMQ
	replicas := rmq.ReplicaCount()

	topo := &Topology{Hostpath: rmq.HostpathConfiguration}

	if rmq.HostpathConfiguration {
		for idx := 0; idx < replicas; idx++ {
			name := HostpathStatefulSetName(idx)
			topo.PVCs = append(topo.PVCs, buildHostpathPVC(spec, in.Namespace, idx))
			topo.StatefulSets = append(topo.StatefulSets, buildStatefulSet(in.Logger, spec, statefulSetParams{
				name:      name,
				namespace: in.Namespace,
				replicas:  1,
				claimName: HostpathClaimName(rmq, idx),
				node:      rmq.Nodes[idx],
			}))
			topo.LocalServices = append(topo.LocalServices, buildLocalService(spec, in.Namespace, name))
		}
	} else {
		topo.StatefulSets = []*appsv1.StatefulSet{buildStatefulSet(in.Logger, spec, statefulSetParams{
			name:      constants.StatefulSetName,
			namespace: in.Namespace,
			replicas:  int32(replicas),
		})}
		topo.LocalServices = []*corev1.Service{buildLocalService(spec, in.Namespace, constants.StatefulSetName)}
	}

	topo.ExternalService = buildExternalService(spec, in.Namespace)
	if rmq.IsNodePortRequired() {
		topo.NodePortService = buildNodePortService(spec, in.Namespace)
	}
	if spec.IsTelegrafEnabled() {
		topo.Telegraf = buildTelegraf(spec, in.Namespace)
	}
	return topo, nil
}

// HostpathStatefulSetName returns the StatefulSet of hostpath replica idx.
func HostpathStatefulSetName(idx int) string {
	return fmt.Sprintf("%s-%d", constants.StatefulSetName, idx)
}

// PodName returns the name of RabbitMQ replica idx in the given storage mode.
func PodName(hostpath bool, idx int) string {
	if hostpath {
		return HostpathStatefulSetName(idx) + constants.HostpathPodNameSuffix
	}
	return fmt.Sprintf("%s-%d", constants.StatefulSetName, idx)
}

// PrimaryPodName returns the pod used for rabbitmqctl commands.
func PrimaryPodName(hostpath bool) string {
	return PodName(hostpath, 0)
}

// IsRabbitMQPodName reports whether name belongs to a RabbitMQ replica pod in
// either storage mode.
func IsRabbitMQPodName(name string) bool {
	return storageClassPodPattern.MatchString(name) || hostpathPodPattern.MatchString(name)
}

// PodIndex returns the replica index of a RabbitMQ pod name in either
// storage mode.
func PodIndex(name string) (int, bool) {
	switch {
	case storageClassPodPattern.MatchString(name):
		return hostpathIndex(name)
	case hostpathPodPattern.MatchString(name):
		return hostpathIndex(name[:len(name)-len(constants.HostpathPodNameSuffix)])
	}
	return 0, false
}

// IsHostpathServiceName reports whether name is a per-node hostpath service.
func IsHostpathServiceName(name string) bool {
	return hostpathPodPattern.MatchString(name)
}

// IsHostpathStatefulSetName reports whether name is a hostpath StatefulSet.
func IsHostpathStatefulSetName(name string) bool {
	return hostpathStatefulSetPattern.MatchString(name)
}

// StorageClassClaimName returns the claim created by the volume claim
// template for storage-class replica idx.
func StorageClassClaimName(idx int) string {
	return fmt.Sprintf("%s-%s-%d", constants.VolumeClaimTemplate, constants.StatefulSetName, idx)
}
