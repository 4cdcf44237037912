//go:build e2e
// +build e2e

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

package e2e

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/credentials"
)

const (
	passTimeout  = 15 * time.Minute
	pollInterval = 5 * time.Second
)

var serviceKey = client.ObjectKey{Name: constants.ServiceResourceName, Namespace: namespace}

// lastCondition returns the newest condition entry, or nil.
func lastCondition(g Gomega) *rabbitmqv2.ServiceCondition {
	service := &rabbitmqv2.RabbitMQService{}
	g.Expect(k8sClient.Get(context.Background(), serviceKey, service)).To(Succeed())
	if n := len(service.Status.Conditions); n > 0 {
		return &service.Status.Conditions[n-1]
	}
	return nil
}

func expectPassOutcome(message string) {
	Eventually(func(g Gomega) {
		last := lastCondition(g)
		g.Expect(last).NotTo(BeNil())
		g.Expect(last.Type).NotTo(Equal(rabbitmqv2.ConditionFailed), "pass failed: %s", last.Message)
		g.Expect(last.Type).To(Equal(rabbitmqv2.ConditionSuccessful))
		g.Expect(last.Message).To(Equal(message))
	}, passTimeout, pollInterval).Should(Succeed())
}

func readyReplicas(g Gomega) int32 {
	sts := &appsv1.StatefulSet{}
	g.Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: constants.StatefulSetName, Namespace: namespace}, sts)).To(Succeed())
	return sts.Status.ReadyReplicas
}

var _ = Describe("RabbitMQService", Ordered, func() {
	AfterEach(dumpOperatorLogs)

	It("installs a storage-class cluster", func(ctx SpecContext) {
		resources := corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse("500m"),
			corev1.ResourceMemory: resource.MustParse("1Gi"),
		}
		storage := resource.MustParse("1Gi")
		service := &rabbitmqv2.RabbitMQService{
			ObjectMeta: metav1.ObjectMeta{Name: constants.ServiceResourceName, Namespace: namespace},
			Spec: rabbitmqv2.RabbitMQServiceSpec{
				RabbitMQ: rabbitmqv2.RabbitMQSpec{
					Replicas:    ptr.To[int32](1),
					DockerImage: rabbitMQImage,
					AutoReboot:  true,
					Resources: rabbitmqv2.ResourcesSpec{
						Limits:       resources,
						Requests:     resources.DeepCopy(),
						Storage:      &storage,
						StorageClass: ptr.To(storageClass),
					},
				},
			},
		}
		Expect(k8sClient.Create(ctx, service)).To(Succeed())

		expectPassOutcome(constants.MessageInstalled)
		Eventually(readyReplicas, passTimeout, pollInterval).Should(BeEquivalentTo(1))
	})

	It("leaves the condition log alone for an unchanged spec", func(ctx SpecContext) {
		service := &rabbitmqv2.RabbitMQService{}
		Expect(k8sClient.Get(ctx, serviceKey, service)).To(Succeed())
		before := len(service.Status.Conditions)

		if service.Annotations == nil {
			service.Annotations = map[string]string{}
		}
		service.Annotations["e2e.netcracker.com/touched"] = "true"
		Expect(k8sClient.Update(ctx, service)).To(Succeed())

		Consistently(func(g Gomega) int {
			current := &rabbitmqv2.RabbitMQService{}
			g.Expect(k8sClient.Get(ctx, serviceKey, current)).To(Succeed())
			return len(current.Status.Conditions)
		}, 30*time.Second, pollInterval).Should(Equal(before))
	})

	It("scales out and restarts existing pods", func(ctx SpecContext) {
		service := &rabbitmqv2.RabbitMQService{}
		Expect(k8sClient.Get(ctx, serviceKey, service)).To(Succeed())
		service.Spec.RabbitMQ.Replicas = ptr.To[int32](3)
		Expect(k8sClient.Update(ctx, service)).To(Succeed())

		expectPassOutcome(constants.MessageUpdated)
		Eventually(readyReplicas, passTimeout, pollInterval).Should(BeEquivalentTo(3))
	})

	It("rotates the password when the default secret changes", func(ctx SpecContext) {
		secret := &corev1.Secret{}
		Expect(k8sClient.Get(ctx, client.ObjectKey{Name: constants.DefaultSecretName, Namespace: namespace}, secret)).To(Succeed())
		secret.Data[constants.SecretKeyPassword] = []byte("e2e-rotated-password")
		Expect(k8sClient.Update(ctx, secret)).To(Succeed())

		Eventually(func(g Gomega) {
			service := &rabbitmqv2.RabbitMQService{}
			g.Expect(k8sClient.Get(ctx, serviceKey, service)).To(Succeed())
			g.Expect(service.Status.Credentials).NotTo(BeNil())
			g.Expect(service.Status.Credentials.Fingerprint).To(Equal(credentials.Fingerprint("e2e-rotated-password")))
		}, passTimeout, pollInterval).Should(Succeed())
		expectPassOutcome(constants.MessageCredentialsRotated)
		Eventually(readyReplicas, passTimeout, pollInterval).Should(BeEquivalentTo(3))
	})

	It("never exposes the password in status", func(ctx SpecContext) {
		service := &rabbitmqv2.RabbitMQService{}
		Expect(k8sClient.Get(ctx, serviceKey, service)).To(Succeed())
		Expect(service.Status.Credentials.Fingerprint).NotTo(ContainSubstring("e2e-rotated-password"))
	})
})
