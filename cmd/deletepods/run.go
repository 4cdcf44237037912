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

// Package deletepods is the pre-restore hook that removes RabbitMQ pods so a
// volume restore starts from stopped brokers.
package deletepods

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
)

// Run deletes every RabbitMQ replica pod in WATCH_NAMESPACE.
func Run(args []string) error {
	opts := zap.Options{}
	fs := flag.NewFlagSet("delete-pods", flag.ContinueOnError)
	opts.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	logger := ctrl.Log.WithName("delete-pods")

	namespace := strings.TrimSpace(os.Getenv(constants.EnvWatchNamespace))
	if namespace == "" {
		return fmt.Errorf("%s must be set", constants.EnvWatchNamespace)
	}

	c, err := client.New(ctrl.GetConfigOrDie(), client.Options{Scheme: clientgoscheme.Scheme})
	if err != nil {
		return fmt.Errorf("unable to create client: %w", err)
	}

	deleted, err := DeletePods(ctrl.SetupSignalHandler(), logger, c, namespace)
	logger.Info("Pre-restore pod deletion finished", "namespace", namespace, "deleted", deleted)
	return err
}

// DeletePods deletes the RabbitMQ replica pods in namespace with a zero grace
// period and returns their names. Every pod is attempted; failures are
// aggregated.
func DeletePods(ctx context.Context, logger logr.Logger, c client.Client, namespace string) ([]string, error) {
	pods := &corev1.PodList{}
	if err := c.List(ctx, pods, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	var deleted []string
	var errs []error
	for i := range pods.Items {
		pod := &pods.Items[i]
		if !infra.IsRabbitMQPodName(pod.Name) {
			continue
		}
		err := c.Delete(ctx, pod, client.GracePeriodSeconds(0))
		switch {
		case err == nil:
			logger.Info("Pod deleted", "pod", pod.Name)
			deleted = append(deleted, pod.Name)
		case apierrors.IsNotFound(err):
		default:
			errs = append(errs, fmt.Errorf("failed to delete pod %s: %w", pod.Name, err))
		}
	}
	return deleted, utilerrors.NewAggregate(errs)
}
