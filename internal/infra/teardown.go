package infra

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// Teardown deletes every object the operator manages for rmq, including
// data claims. It runs when the custom resource is deleted with resource
// cleanup enabled.
func (m *Manager) Teardown(ctx context.Context, logger logr.Logger, rmq *rabbitmqv2.RabbitMQSpec) error {
	meta := func(name string) metav1.ObjectMeta { return metav1.ObjectMeta{Name: name} }

	objects := []client.Object{
		&corev1.ConfigMap{ObjectMeta: meta(constants.ConfigMapName)},
		&corev1.Service{ObjectMeta: meta(constants.ExternalServiceName)},
		&corev1.Secret{ObjectMeta: meta(constants.DefaultSecretName)},
	}

	replicas := rmq.ReplicaCount()
	if rmq.HostpathConfiguration {
		for idx := 0; idx < replicas; idx++ {
			name := HostpathStatefulSetName(idx)
			objects = append(objects,
				&corev1.Service{ObjectMeta: meta(name + constants.HostpathPodNameSuffix)},
				&appsv1.StatefulSet{ObjectMeta: meta(name)},
				&corev1.Pod{ObjectMeta: meta(PodName(true, idx))},
			)
			if idx < len(rmq.Volumes) || len(rmq.Selectors) > 0 {
				objects = append(objects, &corev1.PersistentVolumeClaim{ObjectMeta: meta(HostpathClaimName(rmq, idx))})
			}
		}
	} else {
		objects = append(objects,
			&corev1.Service{ObjectMeta: meta(constants.StatefulSetName)},
			&appsv1.StatefulSet{ObjectMeta: meta(constants.StatefulSetName)},
		)
		for idx := 0; idx < replicas; idx++ {
			objects = append(objects,
				&corev1.Pod{ObjectMeta: meta(PodName(false, idx))},
				&corev1.PersistentVolumeClaim{ObjectMeta: meta(StorageClassClaimName(idx))},
			)
		}
	}

	for _, obj := range objects {
		if err := m.state.DeleteIfPresent(ctx, obj); err != nil {
			return fmt.Errorf("failed to delete %T %s: %w", obj, obj.GetName(), err)
		}
		logger.V(1).Info("Deleted managed object", "kind", fmt.Sprintf("%T", obj), "name", obj.GetName())
	}

	claims := &corev1.PersistentVolumeClaimList{}
	if err := m.state.ListByLabel(ctx, claims, map[string]string{constants.LabelApp: constants.LabelValueRMQLocal}); err != nil {
		return err
	}
	for i := range claims.Items {
		if err := m.state.DeleteIfPresent(ctx, &claims.Items[i]); err != nil {
			return fmt.Errorf("failed to delete PersistentVolumeClaim %s: %w", claims.Items[i].Name, err)
		}
	}
	logger.Info("Deleted managed resources", "claims", len(claims.Items))
	return nil
}
