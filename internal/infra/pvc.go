package infra

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// HostpathClaimName returns the PVC bound to hostpath replica idx.
// Selector-based claims are named after the replica index, volume-based
// claims after the persistent volume.
func HostpathClaimName(rmq *rabbitmqv2.RabbitMQSpec, idx int) string {
	return hostpathClaimPrefix(rmq, idx) + constants.PVCSuffix
}

func hostpathClaimPrefix(rmq *rabbitmqv2.RabbitMQSpec, idx int) string {
	if len(rmq.Selectors) > 0 {
		return fmt.Sprintf("rabbitmq-%d", idx)
	}
	return rmq.Volumes[idx]
}

func buildHostpathPVC(spec *rabbitmqv2.RabbitMQServiceSpec, namespace string, idx int) *corev1.PersistentVolumeClaim {
	rmq := &spec.RabbitMQ
	pvc := &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      HostpathClaimName(rmq, idx),
			Namespace: namespace,
			Labels: objectLabels(spec, map[string]string{
				constants.LabelApp:         constants.LabelValueRMQLocal,
				constants.LabelRabbitMQApp: constants.LabelValueRMQLocal,
			}),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: rmq.Resources.StorageClass,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: rmq.Resources.Storage.DeepCopy()},
			},
		},
	}
	if idx < len(rmq.Volumes) {
		pvc.Spec.VolumeName = rmq.Volumes[idx]
	}
	if len(rmq.Selectors) > 0 {
		key, value, _ := parseSelector(rmq.Selectors[idx])
		pvc.Spec.Selector = &metav1.LabelSelector{MatchLabels: map[string]string{key: value}}
	}
	return pvc
}
