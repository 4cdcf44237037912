package infra

import (
	"strings"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

const (
	configMountPath       = "/configmap"
	sslMountPath          = "/tls"
	ldapMountPath         = "/ldap-credentials"
	trustedCertsMountPath = "/trusted-certs"
	configFileMode        = int32(420)
	telegrafPort          = constants.PortTelegraf
)

var rabbitMQContainerPorts = []int32{
	constants.PortManagement,
	constants.PortEPMD,
	constants.PortAMQPTLS,
	constants.PortAMQP,
	constants.PortManagementTLS,
	constants.PortDistribution,
	constants.PortPrometheus,
}

func intOrStringPort(port int32) intstr.IntOrString {
	return intstr.FromInt32(port)
}

// imagePullPolicy pulls floating "latest" tags on every start.
func imagePullPolicy(image string) corev1.PullPolicy {
	if strings.Contains(strings.ToLower(image), "latest") {
		return corev1.PullAlways
	}
	return corev1.PullIfNotPresent
}

func containerSecurityContext() *corev1.SecurityContext {
	return &corev1.SecurityContext{
		AllowPrivilegeEscalation: ptr.To(false),
		Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
	}
}

func resourceRequirements(res rabbitmqv2.ResourcesSpec) corev1.ResourceRequirements {
	pick := func(in corev1.ResourceList) corev1.ResourceList {
		out := corev1.ResourceList{}
		for _, key := range []corev1.ResourceName{corev1.ResourceCPU, corev1.ResourceMemory} {
			if q, ok := in[key]; ok {
				out[key] = q.DeepCopy()
			}
		}
		return out
	}
	return corev1.ResourceRequirements{Limits: pick(res.Limits), Requests: pick(res.Requests)}
}

func configVolume(ipv6 bool) corev1.Volume {
	items := []corev1.KeyToPath{
		{Key: constants.RabbitMQConfKey, Path: constants.RabbitMQConfKey},
		{Key: "enabled_plugins", Path: "enabled_plugins"},
		{Key: "advanced.config", Path: "advanced.config"},
	}
	if ipv6 {
		items = append(items, corev1.KeyToPath{Key: "erl_inetrc", Path: "erl_inetrc"})
	}
	return corev1.Volume{
		Name: constants.ConfigVolumeName,
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: constants.ConfigMapName},
				DefaultMode:          ptr.To(configFileMode),
				Items:                items,
			},
		},
	}
}

func rabbitMQVolumes(rmq *rabbitmqv2.RabbitMQSpec, claimName string) []corev1.Volume {
	volumes := []corev1.Volume{configVolume(rmq.IPv6Enabled)}
	if rmq.HostpathConfiguration {
		volumes = append(volumes, corev1.Volume{
			Name: constants.HostpathDataVolume,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: claimName},
			},
		})
	}
	if rmq.SSLEnabled {
		volumes = append(volumes, corev1.Volume{
			Name: constants.SSLVolumeName,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: rmq.SSLSecretName, DefaultMode: ptr.To(configFileMode)},
			},
		})
	}
	if rmq.LDAPEnabled {
		volumes = append(volumes, corev1.Volume{
			Name: constants.LDAPSecretName,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName: constants.LDAPSecretName,
					Items: []corev1.KeyToPath{
						{Key: "LDAP_ADMIN_USER", Path: "LDAP_ADMIN_USER"},
						{Key: "LDAP_ADMIN_PASSWORD", Path: "LDAP_ADMIN_PASSWORD"},
					},
				},
			},
		})
		if rmq.LDAPSSLEnabled {
			volumes = append(volumes, corev1.Volume{
				Name: constants.TrustedCertsVolume,
				VolumeSource: corev1.VolumeSource{
					Secret: &corev1.SecretVolumeSource{SecretName: constants.TrustedCertsSecret},
				},
			})
		}
	}
	return volumes
}

func rabbitMQVolumeMounts(rmq *rabbitmqv2.RabbitMQSpec) []corev1.VolumeMount {
	dataVolume := constants.VolumeClaimTemplate
	if rmq.HostpathConfiguration {
		dataVolume = constants.HostpathDataVolume
	}
	mounts := []corev1.VolumeMount{
		{Name: constants.ConfigVolumeName, MountPath: configMountPath},
		{Name: dataVolume, MountPath: constants.RabbitMQDataDir},
	}
	if rmq.SSLEnabled {
		mounts = append(mounts, corev1.VolumeMount{Name: constants.SSLVolumeName, MountPath: sslMountPath})
	}
	if rmq.LDAPEnabled {
		mounts = append(mounts, corev1.VolumeMount{Name: constants.LDAPSecretName, MountPath: ldapMountPath})
		if rmq.LDAPSSLEnabled {
			mounts = append(mounts, corev1.VolumeMount{Name: constants.TrustedCertsVolume, MountPath: trustedCertsMountPath})
		}
	}
	return mounts
}

func volumeClaimTemplates(spec *rabbitmqv2.RabbitMQServiceSpec) []corev1.PersistentVolumeClaim {
	res := spec.RabbitMQ.Resources
	meta := metav1.ObjectMeta{
		Name:   constants.VolumeClaimTemplate,
		Labels: objectLabels(spec, nil),
	}
	if res.StorageClass != nil {
		meta.Annotations = map[string]string{constants.AnnotationBetaStorageClass: *res.StorageClass}
	}
	return []corev1.PersistentVolumeClaim{{
		ObjectMeta: meta,
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: res.StorageClass,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: res.Storage.DeepCopy()},
			},
		},
	}}
}

// statefulSetParams selects the per-StatefulSet variation between storage modes.
type statefulSetParams struct {
	name      string
	namespace string
	replicas  int32
	claimName string
	node      string
}

func buildStatefulSet(logger logr.Logger, spec *rabbitmqv2.RabbitMQServiceSpec, p statefulSetParams) *appsv1.StatefulSet {
	rmq := &spec.RabbitMQ

	container := corev1.Container{
		Name:            p.name,
		Image:           rmq.DockerImage,
		ImagePullPolicy: imagePullPolicy(rmq.DockerImage),
		Resources:       resourceRequirements(rmq.Resources),
		VolumeMounts:    rabbitMQVolumeMounts(rmq),
		Env:             rabbitMQEnv(logger, rmq, p.name),
		LivenessProbe:   livenessProbe(rmq),
		ReadinessProbe:  readinessProbe(rmq),
		SecurityContext: containerSecurityContext(),
	}
	for _, port := range rabbitMQContainerPorts {
		container.Ports = append(container.Ports, corev1.ContainerPort{ContainerPort: port, Protocol: corev1.ProtocolTCP})
	}

	podSpec := corev1.PodSpec{
		Volumes:            rabbitMQVolumes(rmq, p.claimName),
		Containers:         []corev1.Container{container},
		ServiceAccountName: constants.RabbitMQServiceAcct,
		SecurityContext:    rmq.SecurityContext.DeepCopy(),
		Affinity:           rmq.Affinity.DeepCopy(),
		PriorityClassName:  rmq.PriorityClassName,
	}
	for i := range rmq.Tolerations {
		podSpec.Tolerations = append(podSpec.Tolerations, *rmq.Tolerations[i].DeepCopy())
	}

	sts := &appsv1.StatefulSet{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "StatefulSet"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.name,
			Namespace: p.namespace,
			Labels: objectLabels(spec, map[string]string{
				constants.LabelApp:         constants.LabelValueRMQLocal,
				constants.LabelRabbitMQApp: p.name,
				constants.LabelName:        constants.LabelValueRabbitMQ,
				constants.LabelAppName:     constants.LabelValueRabbitMQ,
				constants.LabelAppInstance: "rabbitmq-" + p.namespace,
			}),
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    ptr.To(p.replicas),
			ServiceName: p.name,
			Selector:    &metav1.LabelSelector{MatchLabels: rabbitMQSelector(p.name)},
			UpdateStrategy: appsv1.StatefulSetUpdateStrategy{
				Type: appsv1.OnDeleteStatefulSetStrategyType,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: podLabels(spec, rmq.CustomLabels, rabbitMQSelector(p.name)),
					Annotations: MergeLabels(nil, rmq.CustomAnnotations, map[string]string{
						constants.AnnotationVeleroPreHook: constants.AnnotationVeleroPreHookValue,
					}),
				},
				Spec: podSpec,
			},
		},
	}

	if rmq.HostpathConfiguration {
		sts.Spec.Template.Spec.NodeSelector = map[string]string{constants.LabelHostname: p.node}
	} else {
		sts.Spec.Template.Spec.Containers[0].Lifecycle = &corev1.Lifecycle{
			PreStop: &corev1.LifecycleHandler{
				Exec: &corev1.ExecAction{Command: []string{"bin/bash", "-c", preStopScript}},
			},
		}
		sts.Spec.VolumeClaimTemplates = volumeClaimTemplates(spec)
	}
	return sts
}
