package operationlock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

func newService() *rabbitmqv2.RabbitMQService {
	return &rabbitmqv2.RabbitMQService{
		ObjectMeta: metav1.ObjectMeta{Name: "rabbitmq-service", Namespace: "rabbitmq"},
	}
}

func newClient(t *testing.T, service *rabbitmqv2.RabbitMQService) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, rabbitmqv2.AddToScheme(scheme))
	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&rabbitmqv2.RabbitMQService{}).
		WithObjects(service).
		Build()
}

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	service := newService()
	c := newClient(t, service)

	err := Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmqservice",
		Operation: rabbitmqv2.OperationReconcile,
		Message:   "starting",
	})
	require.NoError(t, err)
	require.NotNil(t, service.Status.OperationLock)
	require.Equal(t, rabbitmqv2.OperationReconcile, service.Status.OperationLock.Operation)
	require.NotNil(t, service.Status.OperationLock.AcquiredAt)

	stored := &rabbitmqv2.RabbitMQService{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "rabbitmq-service", Namespace: "rabbitmq"}, stored))
	require.NotNil(t, stored.Status.OperationLock)
	require.Equal(t, "rabbitmqservice", stored.Status.OperationLock.Holder)

	// Re-acquiring by the same holder renews the message only.
	require.NoError(t, Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmqservice",
		Operation: rabbitmqv2.OperationReconcile,
		Message:   "waiting for pods",
	}))
	require.Equal(t, "waiting for pods", service.Status.OperationLock.Message)

	require.NoError(t, Release(ctx, c, service, "rabbitmqservice", rabbitmqv2.OperationReconcile))
	require.Nil(t, service.Status.OperationLock)

	stored = &rabbitmqv2.RabbitMQService{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "rabbitmq-service", Namespace: "rabbitmq"}, stored))
	require.Nil(t, stored.Status.OperationLock)
}

func TestAcquire_HeldByOtherOperation(t *testing.T) {
	ctx := context.Background()
	service := newService()
	c := newClient(t, service)

	require.NoError(t, Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmq-secret",
		Operation: rabbitmqv2.OperationCredentialRotation,
	}))

	err := Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmq-config",
		Operation: rabbitmqv2.OperationConfigReload,
	})
	require.Error(t, err)
	require.True(t, IsHeld(err))

	var held *HeldError
	require.ErrorAs(t, err, &held)
	require.Equal(t, rabbitmqv2.OperationCredentialRotation, held.Operation)
	require.Equal(t, "rabbitmq-secret", held.Holder)

	err = Release(ctx, c, service, "rabbitmq-config", rabbitmqv2.OperationConfigReload)
	require.True(t, IsHeld(err))
	require.NotNil(t, service.Status.OperationLock)
}

func TestAcquire_Force(t *testing.T) {
	ctx := context.Background()
	service := newService()
	c := newClient(t, service)

	require.NoError(t, Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmq-secret",
		Operation: rabbitmqv2.OperationCredentialRotation,
	}))
	require.NoError(t, Acquire(ctx, c, service, AcquireOptions{
		Holder:    "rabbitmqservice",
		Operation: rabbitmqv2.OperationSwitchover,
		Force:     true,
	}))
	require.Equal(t, rabbitmqv2.OperationSwitchover, service.Status.OperationLock.Operation)
}

func TestRelease_NoLockIsNoop(t *testing.T) {
	service := newService()
	c := newClient(t, service)
	require.NoError(t, Release(context.Background(), c, service, "rabbitmqservice", rabbitmqv2.OperationReconcile))
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	service := newService()
	c := newClient(t, service)

	require.Error(t, Acquire(ctx, c, nil, AcquireOptions{Holder: "h", Operation: rabbitmqv2.OperationReconcile}))
	require.Error(t, Acquire(ctx, c, service, AcquireOptions{Operation: rabbitmqv2.OperationReconcile}))
	require.Error(t, Acquire(ctx, c, service, AcquireOptions{Holder: "h"}))
	require.Error(t, Release(ctx, c, service, "", rabbitmqv2.OperationReconcile))
	require.Error(t, Release(ctx, c, service, "h", ""))
}
