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

package controller

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

// RabbitMQServicePredicate filters RabbitMQService events to only reconcile on
// meaningful changes.
//
// The predicate allows reconciliation when:
//   - The resource is created
//   - The Spec changes (detected via Generation change)
//   - DeletionTimestamp changes (triggers deletion handling)
//   - Finalizers change (triggers finalizer handling)
//   - Metadata labels or annotations change (switchoverRetry lives there)
//
// Status-only updates are filtered out: the controllers write the condition
// log themselves and must not wake up for their own writes.
func RabbitMQServicePredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return true
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			// Cleanup runs from the finalizer before the object disappears.
			return false
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldService, ok := e.ObjectOld.(*rabbitmqv2.RabbitMQService)
			if !ok {
				return true
			}
			newService, ok := e.ObjectNew.(*rabbitmqv2.RabbitMQService)
			if !ok {
				return true
			}

			if oldService.Generation != newService.Generation {
				return true
			}
			if !oldService.DeletionTimestamp.Equal(newService.DeletionTimestamp) {
				return true
			}
			if !equality.Semantic.DeepEqual(oldService.Finalizers, newService.Finalizers) {
				return true
			}
			if !equality.Semantic.DeepEqual(oldService.Labels, newService.Labels) {
				return true
			}
			if !equality.Semantic.DeepEqual(oldService.Annotations, newService.Annotations) {
				return true
			}

			return false
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return true
		},
	}
}

// SecretDataPredicate passes events of the named Secret when it is created or
// its data changes.
func SecretDataPredicate(name string) predicate.Predicate {
	return dataChangedPredicate(name, func(oldObj, newObj client.Object) bool {
		oldSecret, ok := oldObj.(*corev1.Secret)
		if !ok {
			return true
		}
		newSecret, ok := newObj.(*corev1.Secret)
		if !ok {
			return true
		}
		return !equality.Semantic.DeepEqual(oldSecret.Data, newSecret.Data) ||
			!equality.Semantic.DeepEqual(oldSecret.StringData, newSecret.StringData)
	})
}

// ConfigMapDataPredicate passes events of the named ConfigMap when it is
// created or its data changes.
func ConfigMapDataPredicate(name string) predicate.Predicate {
	return dataChangedPredicate(name, func(oldObj, newObj client.Object) bool {
		oldConfigMap, ok := oldObj.(*corev1.ConfigMap)
		if !ok {
			return true
		}
		newConfigMap, ok := newObj.(*corev1.ConfigMap)
		if !ok {
			return true
		}
		return !equality.Semantic.DeepEqual(oldConfigMap.Data, newConfigMap.Data) ||
			!equality.Semantic.DeepEqual(oldConfigMap.BinaryData, newConfigMap.BinaryData)
	})
}

func dataChangedPredicate(name string, changed func(oldObj, newObj client.Object) bool) predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return e.Object.GetName() == name
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return false
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			if e.ObjectNew.GetName() != name {
				return false
			}
			return changed(e.ObjectOld, e.ObjectNew)
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return false
		},
	}
}
