// Package kube provides the cluster state client the orchestration layer uses
// to read and mutate Kubernetes objects.
package kube

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// Options configures a StateClient.
type Options struct {
	Namespace string
	// HandleForbiddenUpdate enables orphan-delete and recreate of StatefulSets
	// whose immutable fields changed.
	HandleForbiddenUpdate bool
	ForbiddenUpdatePause  time.Duration
	Executor              PodExecutor
}

// StateClient performs namespaced reads and writes on behalf of the
// controllers. Reads go through an uncached reader so every check observes
// live state.
type StateClient struct {
	client    client.Client
	reader    client.Reader
	namespace string
	opts      Options
}

// NewStateClient returns a StateClient writing through c and reading through
// reader. A nil reader falls back to c.
func NewStateClient(c client.Client, reader client.Reader, opts Options) *StateClient {
	if reader == nil {
		reader = c
	}
	return &StateClient{client: c, reader: reader, namespace: opts.Namespace, opts: opts}
}

// Namespace returns the namespace the client operates in.
func (s *StateClient) Namespace() string {
	return s.namespace
}

func (s *StateClient) key(name string) types.NamespacedName {
	return types.NamespacedName{Namespace: s.namespace, Name: name}
}

// classify wraps Kubernetes API errors so callers can tell transient from
// permanent failures.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	if operatorerrors.IsTransientKubernetesAPI(err) {
		return operatorerrors.WrapTransientKubernetesAPI(wrapped)
	}
	return wrapped
}

// Exists reports whether an object with obj's kind and name exists.
func (s *StateClient) Exists(ctx context.Context, obj client.Object) (bool, error) {
	probe, ok := obj.DeepCopyObject().(client.Object)
	if !ok {
		return false, fmt.Errorf("object %T is not a client.Object", obj)
	}
	if err := s.reader.Get(ctx, s.key(obj.GetName()), probe); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, classify(err, "failed to get %T %s", obj, obj.GetName())
	}
	return true, nil
}

// CreateOrUpdate creates obj or replaces the live object with it. A
// StatefulSet update rejected for immutable fields is retried as an
// orphaning delete followed by a create when permitted.
func (s *StateClient) CreateOrUpdate(ctx context.Context, obj client.Object) error {
	logger := log.FromContext(ctx)
	obj.SetNamespace(s.namespace)

	live, ok := obj.DeepCopyObject().(client.Object)
	if !ok {
		return fmt.Errorf("object %T is not a client.Object", obj)
	}
	err := s.reader.Get(ctx, s.key(obj.GetName()), live)
	if apierrors.IsNotFound(err) {
		logger.V(1).Info("Creating object", "kind", fmt.Sprintf("%T", obj), "name", obj.GetName())
		obj.SetResourceVersion("")
		return classify(s.client.Create(ctx, obj), "failed to create %T %s", obj, obj.GetName())
	}
	if err != nil {
		return classify(err, "failed to get %T %s", obj, obj.GetName())
	}

	obj.SetResourceVersion(live.GetResourceVersion())
	preserveServerFields(obj, live)

	err = s.client.Update(ctx, obj)
	if err == nil {
		return nil
	}
	if !operatorerrors.IsForbiddenStatefulSetUpdate(err) {
		return classify(err, "failed to update %T %s", obj, obj.GetName())
	}
	if !s.opts.HandleForbiddenUpdate {
		return operatorerrors.WrapPermanentConfig(fmt.Errorf("failed to update %T %s: %w", obj, obj.GetName(), err))
	}

	logger.Info("Generated object changes immutable fields, recreating it with orphaned pods", "name", obj.GetName())
	if err := s.client.Delete(ctx, live, client.PropagationPolicy("Orphan")); err != nil && !apierrors.IsNotFound(err) {
		return classify(err, "failed to delete %T %s", obj, obj.GetName())
	}
	if err := poll.Sleep(ctx, s.opts.ForbiddenUpdatePause); err != nil {
		return err
	}
	obj.SetResourceVersion("")
	return classify(s.client.Create(ctx, obj), "failed to recreate %T %s", obj, obj.GetName())
}

// preserveServerFields copies fields allocated by the API server onto the
// desired object so a replace does not try to clear them.
func preserveServerFields(desired, live client.Object) {
	desiredSvc, ok := desired.(*corev1.Service)
	if !ok {
		return
	}
	liveSvc, ok := live.(*corev1.Service)
	if !ok {
		return
	}
	if desiredSvc.Spec.ClusterIP == "" {
		desiredSvc.Spec.ClusterIP = liveSvc.Spec.ClusterIP
		desiredSvc.Spec.ClusterIPs = liveSvc.Spec.ClusterIPs
	}
	if len(desiredSvc.Spec.IPFamilies) == 0 {
		desiredSvc.Spec.IPFamilies = liveSvc.Spec.IPFamilies
		desiredSvc.Spec.IPFamilyPolicy = liveSvc.Spec.IPFamilyPolicy
	}
	livePorts := make(map[string]int32, len(liveSvc.Spec.Ports))
	for _, p := range liveSvc.Spec.Ports {
		livePorts[p.Name] = p.NodePort
	}
	for i := range desiredSvc.Spec.Ports {
		if desiredSvc.Spec.Ports[i].NodePort == 0 {
			desiredSvc.Spec.Ports[i].NodePort = livePorts[desiredSvc.Spec.Ports[i].Name]
		}
	}
}

// CreateIfAbsent creates obj unless an object with its name already exists.
func (s *StateClient) CreateIfAbsent(ctx context.Context, obj client.Object) (bool, error) {
	obj.SetNamespace(s.namespace)
	exists, err := s.Exists(ctx, obj)
	if err != nil || exists {
		return false, err
	}
	if err := s.client.Create(ctx, obj); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return false, nil
		}
		return false, classify(err, "failed to create %T %s", obj, obj.GetName())
	}
	return true, nil
}

// DeleteIfPresent deletes obj. A missing object is not an error.
func (s *StateClient) DeleteIfPresent(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	obj.SetNamespace(s.namespace)
	if err := s.client.Delete(ctx, obj, opts...); err != nil && !apierrors.IsNotFound(err) {
		return classify(err, "failed to delete %T %s", obj, obj.GetName())
	}
	return nil
}

// DeletePod deletes the named pod if it exists.
func (s *StateClient) DeletePod(ctx context.Context, name string, opts ...client.DeleteOption) error {
	pod := &corev1.Pod{}
	pod.Name = name
	return s.DeleteIfPresent(ctx, pod, opts...)
}

// ListByLabel lists objects in the namespace matching selector.
func (s *StateClient) ListByLabel(ctx context.Context, list client.ObjectList, selector map[string]string) error {
	opts := []client.ListOption{client.InNamespace(s.namespace)}
	if len(selector) > 0 {
		opts = append(opts, client.MatchingLabels(selector))
	}
	return classify(s.reader.List(ctx, list, opts...), "failed to list %T", list)
}

// ListPods lists pods in the namespace matching selector.
func (s *StateClient) ListPods(ctx context.Context, selector map[string]string) ([]corev1.Pod, error) {
	pods := &corev1.PodList{}
	if err := s.ListByLabel(ctx, pods, selector); err != nil {
		return nil, err
	}
	return pods.Items, nil
}

// RabbitMQPods lists the pods selected by app=rmqlocal.
func (s *StateClient) RabbitMQPods(ctx context.Context) ([]corev1.Pod, error) {
	return s.ListPods(ctx, map[string]string{constants.LabelApp: constants.LabelValueRMQLocal})
}

// ConfigMapData returns the data of the named ConfigMap and whether it exists.
func (s *StateClient) ConfigMapData(ctx context.Context, name string) (map[string]string, bool, error) {
	cm := &corev1.ConfigMap{}
	if err := s.reader.Get(ctx, s.key(name), cm); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify(err, "failed to get ConfigMap %s", name)
	}
	return cm.Data, true, nil
}

// GetDeployment returns the named Deployment, or nil when it does not exist.
func (s *StateClient) GetDeployment(ctx context.Context, name string) (*appsv1.Deployment, error) {
	dep := &appsv1.Deployment{}
	if err := s.reader.Get(ctx, s.key(name), dep); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, classify(err, "failed to get Deployment %s", name)
	}
	return dep, nil
}

// DeploymentStatus returns the status of the named Deployment.
func (s *StateClient) DeploymentStatus(ctx context.Context, name string) (appsv1.DeploymentStatus, error) {
	dep, err := s.GetDeployment(ctx, name)
	if err != nil {
		return appsv1.DeploymentStatus{}, err
	}
	if dep == nil {
		return appsv1.DeploymentStatus{}, fmt.Errorf("deployment %s not found", name)
	}
	return dep.Status, nil
}

// ScaleDeployment sets the replica count of the named Deployment through the
// scale subresource.
func (s *StateClient) ScaleDeployment(ctx context.Context, name string, replicas int32) error {
	dep := &appsv1.Deployment{}
	dep.Name = name
	dep.Namespace = s.namespace

	scale := &autoscalingv1.Scale{}
	if err := s.client.SubResource("scale").Get(ctx, dep, scale); err != nil {
		return classify(err, "failed to read scale of Deployment %s", name)
	}
	scale.Spec.Replicas = replicas
	if err := s.client.SubResource("scale").Update(ctx, dep, client.WithSubResourceBody(scale)); err != nil {
		return classify(err, "failed to scale Deployment %s to %d", name, replicas)
	}
	return nil
}
