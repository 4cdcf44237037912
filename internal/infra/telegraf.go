package infra

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

func telegrafResources() corev1.ResourceRequirements {
	list := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("100m"),
		corev1.ResourceMemory: resource.MustParse("100Mi"),
	}
	return corev1.ResourceRequirements{Limits: list, Requests: list.DeepCopy()}
}

func buildTelegraf(spec *rabbitmqv2.RabbitMQServiceSpec, namespace string) *appsv1.Deployment {
	tg := spec.Telegraf
	fixed := map[string]string{
		constants.LabelName:      constants.TelegrafName,
		constants.LabelComponent: constants.TelegrafName,
	}

	podSpec := corev1.PodSpec{
		Containers: []corev1.Container{{
			Name:                   constants.TelegrafName,
			Image:                  tg.DockerImage,
			ImagePullPolicy:        imagePullPolicy(tg.DockerImage),
			Env:                    telegrafEnv(),
			TerminationMessagePath: corev1.TerminationMessagePathDefault,
			Resources:              telegrafResources(),
			SecurityContext:        containerSecurityContext(),
			ReadinessProbe:         telegrafProbe(),
			LivenessProbe:          telegrafProbe(),
		}},
		SecurityContext:               tg.SecurityContext.DeepCopy(),
		Affinity:                      spec.RabbitMQ.Affinity.DeepCopy(),
		RestartPolicy:                 corev1.RestartPolicyAlways,
		ServiceAccountName:            constants.OperatorServiceAcct,
		TerminationGracePeriodSeconds: ptr.To(int64(30)),
	}
	for i := range spec.RabbitMQ.Tolerations {
		podSpec.Tolerations = append(podSpec.Tolerations, *spec.RabbitMQ.Tolerations[i].DeepCopy())
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      constants.TelegrafName,
			Namespace: namespace,
			Labels:    objectLabels(spec, fixed),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{
				constants.LabelName:      constants.TelegrafName,
				constants.LabelComponent: constants.TelegrafName,
			}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels(spec, tg.CustomLabels, fixed)},
				Spec:       podSpec,
			},
		},
	}
}
