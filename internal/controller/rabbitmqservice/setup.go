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

package rabbitmqservice

import (
	"time"

	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	controllerutil "github.com/netcracker/rabbitmq-operator/internal/controller"
)

// controllerOptions are shared by the three controllers. Each runs one
// reconcile at a time; the operation lock orders them against each other.
func controllerOptions() controller.Options {
	return controller.Options{
		MaxConcurrentReconciles: 1,
		RateLimiter: workqueue.NewTypedMaxOfRateLimiter(
			workqueue.NewTypedItemExponentialFailureRateLimiter[ctrl.Request](1*time.Second, 60*time.Second),
			&workqueue.TypedBucketRateLimiter[ctrl.Request]{Limiter: rate.NewLimiter(rate.Limit(10), 100)},
		),
	}
}

// SetupWithManager registers the RabbitMQService controller.
func (r *RabbitMQServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&rabbitmqv2.RabbitMQService{}, builder.WithPredicates(controllerutil.RabbitMQServicePredicate())).
		WithOptions(controllerOptions()).
		Named(constants.ControllerNameRabbitMQService).
		Complete(r)
}

// SetupWithManager registers the default secret controller.
func (r *CredentialsReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Secret{}, builder.WithPredicates(controllerutil.SecretDataPredicate(constants.DefaultSecretName))).
		WithOptions(controllerOptions()).
		Named(constants.ControllerNameCredentials).
		Complete(r)
}

// SetupWithManager registers the RabbitMQ configuration controller.
func (r *ConfigReloadReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.ConfigMap{}, builder.WithPredicates(controllerutil.ConfigMapDataPredicate(constants.ConfigMapName))).
		WithOptions(controllerOptions()).
		Named(constants.ControllerNameConfigReload).
		Complete(r)
}
