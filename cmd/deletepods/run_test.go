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

package deletepods

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

func pod(namespace, name string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name}}
}

func TestDeletePods(t *testing.T) {
	ctx := context.Background()
	c := fake.NewClientBuilder().WithScheme(clientgoscheme.Scheme).WithObjects(
		pod("rabbitmq", "rmqlocal-0"),
		pod("rabbitmq", "rmqlocal-11"),
		pod("rabbitmq", "rmqlocal-2-0"),
		pod("rabbitmq", "rmqlocal-backup-daemon-5d8f"),
		pod("rabbitmq", "rabbitmq-integration-tests"),
		pod("other", "rmqlocal-0"),
	).Build()

	deleted, err := DeletePods(ctx, logr.Discard(), c, "rabbitmq")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rmqlocal-0", "rmqlocal-11", "rmqlocal-2-0"}, deleted)

	remaining := &corev1.PodList{}
	require.NoError(t, c.List(ctx, remaining))
	var names []string
	for _, p := range remaining.Items {
		names = append(names, p.Namespace+"/"+p.Name)
	}
	assert.ElementsMatch(t, []string{
		"rabbitmq/rmqlocal-backup-daemon-5d8f",
		"rabbitmq/rabbitmq-integration-tests",
		"other/rmqlocal-0",
	}, names)
}

func TestDeletePods_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	c := fake.NewClientBuilder().
		WithScheme(clientgoscheme.Scheme).
		WithObjects(pod("rabbitmq", "rmqlocal-0"), pod("rabbitmq", "rmqlocal-1")).
		WithInterceptorFuncs(interceptor.Funcs{
			Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
				if obj.GetName() == "rmqlocal-0" {
					return errors.New("connection refused")
				}
				return c.Delete(ctx, obj, opts...)
			},
		}).Build()

	deleted, err := DeletePods(ctx, logr.Discard(), c, "rabbitmq")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rmqlocal-0")
	assert.Equal(t, []string{"rmqlocal-1"}, deleted)
}
