package infra

import (
	"testing"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

const testNamespace = "rabbitmq"

var testScheme = func() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	return scheme
}()

func newTestClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	builder := fake.NewClientBuilder().WithScheme(testScheme)
	if len(objs) > 0 {
		builder = builder.WithObjects(objs...)
	}
	return builder.Build()
}

func newStorageClassSpec(replicas int32) *rabbitmqv2.RabbitMQServiceSpec {
	resources := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("1"),
		corev1.ResourceMemory: resource.MustParse("2Gi"),
	}
	storage := resource.MustParse("5Gi")
	return &rabbitmqv2.RabbitMQServiceSpec{
		RabbitMQ: rabbitmqv2.RabbitMQSpec{
			Replicas:    ptr.To(replicas),
			DockerImage: "registry.local/rabbitmq:3.13.7",
			Resources: rabbitmqv2.ResourcesSpec{
				Limits:       resources,
				Requests:     resources.DeepCopy(),
				Storage:      &storage,
				StorageClass: ptr.To("standard"),
			},
		},
	}
}

func newHostpathSpec(replicas int32) *rabbitmqv2.RabbitMQServiceSpec {
	spec := newStorageClassSpec(replicas)
	spec.RabbitMQ.HostpathConfiguration = true
	for i := int32(0); i < replicas; i++ {
		spec.RabbitMQ.Nodes = append(spec.RabbitMQ.Nodes, "node-"+string(rune('a'+i)))
		spec.RabbitMQ.Volumes = append(spec.RabbitMQ.Volumes, "pv-"+string(rune('a'+i)))
	}
	return spec
}

func mustBuild(t *testing.T, spec *rabbitmqv2.RabbitMQServiceSpec) *Topology {
	t.Helper()
	topo, err := Build(BuildInput{Spec: spec, Namespace: testNamespace, Logger: logr.Discard()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return topo
}
