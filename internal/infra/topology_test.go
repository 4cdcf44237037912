package infra

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

func envValue(env []corev1.EnvVar, name string) (string, bool) {
	for _, e := range env {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func TestBuild_StorageClassScenario(t *testing.T) {
	topo := mustBuild(t, newStorageClassSpec(3))

	assert.False(t, topo.Hostpath)
	require.Len(t, topo.StatefulSets, 1)
	sts := topo.StatefulSets[0]
	assert.Equal(t, constants.StatefulSetName, sts.Name)
	assert.Equal(t, int32(3), ptr.Deref(sts.Spec.Replicas, 0))
	require.Len(t, sts.Spec.VolumeClaimTemplates, 1)
	vct := sts.Spec.VolumeClaimTemplates[0]
	assert.Equal(t, constants.VolumeClaimTemplate, vct.Name)
	assert.Equal(t, "standard", ptr.Deref(vct.Spec.StorageClassName, ""))
	assert.Equal(t, "standard", vct.Annotations[constants.AnnotationBetaStorageClass])

	container := sts.Spec.Template.Spec.Containers[0]
	require.NotNil(t, container.Lifecycle)
	require.NotNil(t, container.Lifecycle.PreStop)
	longName, _ := envValue(container.Env, "RABBITMQ_USE_LONGNAME")
	assert.Equal(t, "true", longName)

	require.Len(t, topo.LocalServices, 1)
	assert.Equal(t, constants.StatefulSetName, topo.LocalServices[0].Name)
	assert.Equal(t, corev1.ClusterIPNone, topo.LocalServices[0].Spec.ClusterIP)

	assert.Equal(t, constants.ExternalServiceName, topo.ExternalService.Name)
	var ports []int32
	for _, p := range topo.ExternalService.Spec.Ports {
		ports = append(ports, p.Port)
	}
	assert.Equal(t, []int32{5672, 15672, 15692}, ports)
	assert.Nil(t, topo.NodePortService)
	assert.Nil(t, topo.Telegraf)
	assert.Empty(t, topo.PVCs)
}

func TestBuild_HostpathScenario(t *testing.T) {
	topo := mustBuild(t, newHostpathSpec(3))

	assert.True(t, topo.Hostpath)
	require.Len(t, topo.StatefulSets, 3)
	require.Len(t, topo.PVCs, 3)
	require.Len(t, topo.LocalServices, 3)

	for idx, sts := range topo.StatefulSets {
		assert.Equal(t, HostpathStatefulSetName(idx), sts.Name)
		assert.Equal(t, int32(1), ptr.Deref(sts.Spec.Replicas, 0))
		assert.Empty(t, sts.Spec.VolumeClaimTemplates)
		assert.Equal(t, []string{"node-a", "node-b", "node-c"}[idx], sts.Spec.Template.Spec.NodeSelector[constants.LabelHostname])

		container := sts.Spec.Template.Spec.Containers[0]
		assert.Nil(t, container.Lifecycle)
		nodeName, _ := envValue(container.Env, "RABBITMQ_NODENAME")
		assert.Equal(t, "rabbit@$(BROKER_NAME_INTERNAL)-0", nodeName)

		var claim string
		for _, v := range sts.Spec.Template.Spec.Volumes {
			if v.PersistentVolumeClaim != nil {
				claim = v.PersistentVolumeClaim.ClaimName
			}
		}
		assert.Equal(t, topo.PVCs[idx].Name, claim)
		assert.Equal(t, HostpathStatefulSetName(idx)+"-0", topo.LocalServices[idx].Name)
		assert.NotEqual(t, corev1.ClusterIPNone, topo.LocalServices[idx].Spec.ClusterIP)
	}
	assert.Equal(t, "pv-a-rmq-pvc", topo.PVCs[0].Name)
	assert.Equal(t, "pv-a", topo.PVCs[0].Spec.VolumeName)
}

func TestBuild_HostpathSelectorsNameClaimsByIndex(t *testing.T) {
	spec := newHostpathSpec(2)
	spec.RabbitMQ.Volumes = nil
	spec.RabbitMQ.Selectors = []string{"disk=a", "disk=b"}

	topo := mustBuild(t, spec)
	require.Len(t, topo.PVCs, 2)
	assert.Equal(t, "rabbitmq-1-rmq-pvc", topo.PVCs[1].Name)
	require.NotNil(t, topo.PVCs[1].Spec.Selector)
	assert.Equal(t, map[string]string{"disk": "b"}, topo.PVCs[1].Spec.Selector.MatchLabels)
}

func TestBuild_IsDeterministic(t *testing.T) {
	spec := newStorageClassSpec(3)
	spec.RabbitMQ.EnvironmentVariables = []string{"A=1", "B=2"}
	spec.RabbitMQ.CustomLabels = map[string]string{"team": "messaging"}
	spec.Global = &rabbitmqv2.GlobalSpec{DefaultLabels: map[string]string{"env": "prod"}}
	spec.Telegraf = &rabbitmqv2.TelegrafSpec{Install: true, DockerImage: "telegraf:1.30"}

	first := mustBuild(t, spec)
	second := mustBuild(t, spec)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Build() is not deterministic (-first +second):\n%s", diff)
	}
}

func TestBuild_OptionalComponents(t *testing.T) {
	spec := newStorageClassSpec(1)
	spec.RabbitMQ.SSLEnabled = true
	spec.RabbitMQ.SSLSecretName = "rabbitmq-tls"
	spec.RabbitMQ.NonencryptedAccess = ptr.To(false)
	spec.RabbitMQ.NodePortService = &rabbitmqv2.NodePortServiceSpec{Install: true, AMQPNodePort: 30671, MgmtNodePort: 31671}
	spec.Telegraf = &rabbitmqv2.TelegrafSpec{Install: true, DockerImage: "telegraf:1.30"}

	topo := mustBuild(t, spec)

	var ports []int32
	for _, p := range topo.ExternalService.Spec.Ports {
		ports = append(ports, p.Port)
	}
	assert.Equal(t, []int32{15692, 5671, 15671}, ports)

	require.NotNil(t, topo.NodePortService)
	assert.Equal(t, corev1.ServiceTypeNodePort, topo.NodePortService.Spec.Type)
	assert.Equal(t, int32(31671), topo.NodePortService.Spec.Ports[0].NodePort)
	assert.Equal(t, int32(30671), topo.NodePortService.Spec.Ports[1].NodePort)

	require.NotNil(t, topo.Telegraf)
	assert.Equal(t, constants.TelegrafName, topo.Telegraf.Name)
	assert.Equal(t, constants.OperatorServiceAcct, topo.Telegraf.Spec.Template.Spec.ServiceAccountName)
}

func TestBuild_LabelPrecedence(t *testing.T) {
	spec := newStorageClassSpec(1)
	spec.Global = &rabbitmqv2.GlobalSpec{
		DefaultLabels: map[string]string{"app": "global", "env": "prod"},
		CustomLabels:  map[string]string{"tier": "global", "owner": "platform"},
	}
	spec.RabbitMQ.CustomLabels = map[string]string{"tier": "custom", constants.LabelDeploymentConfig: "custom"}

	topo := mustBuild(t, spec)
	sts := topo.StatefulSets[0]

	assert.Equal(t, constants.LabelValueRMQLocal, sts.Labels["app"], "own labels win over global defaults")
	assert.Equal(t, "prod", sts.Labels["env"])

	podLabels := sts.Spec.Template.Labels
	assert.Equal(t, "custom", podLabels["tier"], "custom labels win over global custom labels")
	assert.Equal(t, "platform", podLabels["owner"])
	assert.Equal(t, constants.StatefulSetName, podLabels[constants.LabelDeploymentConfig], "own labels win over custom labels")
}

func TestMergeLabels(t *testing.T) {
	global := map[string]string{"a": "g", "b": "g", "c": "g"}
	custom := map[string]string{"b": "c", "c": "c"}
	own := map[string]string{"c": "o"}

	got := MergeLabels(global, custom, own)
	assert.Equal(t, map[string]string{"a": "g", "b": "c", "c": "o"}, got)

	got["a"] = "mutated"
	assert.Equal(t, "g", global["a"], "MergeLabels must return a fresh map")
}

func TestBuild_ProbeOverrides(t *testing.T) {
	spec := newStorageClassSpec(1)
	spec.RabbitMQ.ReadinessProbe = &rabbitmqv2.ProbeOverride{FailureThreshold: ptr.To[int32](5)}
	spec.RabbitMQ.LivenessProbe = &rabbitmqv2.ProbeOverride{PeriodSeconds: ptr.To[int32](60)}

	container := mustBuild(t, spec).StatefulSets[0].Spec.Template.Spec.Containers[0]

	readiness := container.ReadinessProbe
	assert.Equal(t, int32(5), readiness.FailureThreshold)
	assert.Equal(t, int32(10), readiness.PeriodSeconds)
	assert.Equal(t, int32(15), readiness.TimeoutSeconds)

	liveness := container.LivenessProbe
	assert.Equal(t, int32(60), liveness.PeriodSeconds)
	assert.Equal(t, int32(30), liveness.FailureThreshold)
	assert.Equal(t, int32(15), liveness.TimeoutSeconds)

	defaults := mustBuild(t, newStorageClassSpec(1)).StatefulSets[0].Spec.Template.Spec.Containers[0]
	assert.Equal(t, int32(90), defaults.ReadinessProbe.FailureThreshold)
	assert.Equal(t, int32(5), defaults.ReadinessProbe.TimeoutSeconds)
}

func TestUserEnv(t *testing.T) {
	got := UserEnv(logr.Discard(), []string{
		"A=1",
		" B = two ",
		"malformed",
		"C=x=y",
		"A=3",
	})
	assert.Equal(t, []corev1.EnvVar{{Name: "A", Value: "3"}, {Name: "B", Value: "two"}}, got)
}

func TestBuild_EnvAssemblyOrder(t *testing.T) {
	spec := newStorageClassSpec(1)
	spec.RabbitMQ.IPv6Enabled = true
	spec.RabbitMQ.LDAPEnabled = true
	spec.RabbitMQ.EnvironmentVariables = []string{"USER_VAR=1"}

	env := mustBuild(t, spec).StatefulSets[0].Spec.Template.Spec.Containers[0].Env
	names := make([]string, 0, len(env))
	for _, e := range env {
		names = append(names, e.Name)
	}
	require.GreaterOrEqual(t, len(names), 21)
	assert.Equal(t, constants.EnvBrokerNameInternal, names[0])
	assert.Equal(t, "RABBITMQ_ENABLE_IPV6", names[16])
	assert.Equal(t, "USER_VAR", names[17])
	assert.Equal(t, "RABBITMQ_SERVER_ADDITIONAL_ERL_ARGS", names[18])
	assert.Equal(t, "LDAP_ADMIN_PASSWORD", names[len(names)-1])

	ipv6, _ := envValue(env, "RABBITMQ_ENABLE_IPV6")
	assert.Equal(t, "True", ipv6)
}

func TestBuild_PodNameHelpers(t *testing.T) {
	assert.Equal(t, "rmqlocal-0-0", PrimaryPodName(true))
	assert.Equal(t, "rmqlocal-0", PrimaryPodName(false))
	assert.Equal(t, "rmqlocal-2-0", PodName(true, 2))
	assert.True(t, IsRabbitMQPodName("rmqlocal-12"))
	assert.True(t, IsRabbitMQPodName("rmqlocal-1-0"))
	assert.False(t, IsRabbitMQPodName("rmqlocal-backup"))
	assert.False(t, IsRabbitMQPodName("telegraf-5c9d"))

	idx, ok := PodIndex("rmqlocal-12")
	assert.True(t, ok)
	assert.Equal(t, 12, idx)
	idx, ok = PodIndex("rmqlocal-10-0")
	assert.True(t, ok)
	assert.Equal(t, 10, idx)
	_, ok = PodIndex("rmqlocal-backup")
	assert.False(t, ok)
	assert.Equal(t, "default-vct-name-rmqlocal-1", StorageClassClaimName(1))
}
