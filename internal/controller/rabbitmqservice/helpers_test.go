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
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/backupdaemon"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
	"github.com/netcracker/rabbitmq-operator/internal/rabbitmq"
)

const testNamespace = "rabbitmq"

var testScheme = func() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	_ = rabbitmqv2.AddToScheme(scheme)
	return scheme
}()

var serviceKey = types.NamespacedName{Namespace: testNamespace, Name: constants.ServiceResourceName}

func serviceRequest() ctrl.Request {
	return ctrl.Request{NamespacedName: serviceKey}
}

// fakeExecutor records every command run in a pod.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (f *fakeExecutor) Exec(_ context.Context, req kube.ExecRequest) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, req.Pod+": "+strings.Join(req.Command, " "))
	return "", "", f.err
}

func (f *fakeExecutor) ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type fakeManagement struct {
	alive bool
}

func (f *fakeManagement) ClusterAlive(context.Context, logr.Logger, int) bool { return f.alive }

func (f *fakeManagement) CheckShovels(context.Context, logr.Logger, float64) rabbitmq.ShovelReport {
	return rabbitmq.ShovelReport{}
}

type fakeDaemon struct {
	ready bool
}

func (f *fakeDaemon) FullBackup(context.Context) (string, error)     { return "backup-1", nil }
func (f *fakeDaemon) Restore(context.Context, string) (string, error) { return "restore-1", nil }
func (f *fakeDaemon) ListBackups(context.Context) ([]string, error)  { return nil, nil }
func (f *fakeDaemon) BackupInfo(context.Context, string) (*backupdaemon.BackupInfo, error) {
	return &backupdaemon.BackupInfo{}, nil
}
func (f *fakeDaemon) JobStatus(context.Context, string) (*backupdaemon.JobStatus, error) {
	return &backupdaemon.JobStatus{}, nil
}
func (f *fakeDaemon) WaitReady(context.Context, logr.Logger, poll.Policy) (bool, error) {
	return f.ready, nil
}

type fakeClients struct {
	management *fakeManagement
	daemon     *fakeDaemon
}

func (f *fakeClients) Management(context.Context, *rabbitmqv2.RabbitMQService) (ManagementAPI, error) {
	return f.management, nil
}

func (f *fakeClients) BackupDaemon(context.Context) (BackupDaemonAPI, error) {
	return f.daemon, nil
}

// testConfig returns an operator configuration whose waits finish in
// milliseconds.
func testConfig() *config.OperatorConfig {
	fast := poll.Every(2, time.Millisecond)
	timings := config.DefaultTimings()
	timings.PodPresence = fast
	timings.PodReady = fast
	timings.Membership = fast
	timings.BackupRequest = fast
	timings.Restore = fast
	timings.JobStatus = fast
	timings.LockCheck = fast
	timings.ScaleDown = fast
	timings.ScaleUp = fast
	timings.TerminalWait = fast
	timings.ShovelRestart = fast
	timings.CleanVolumePause = 0
	timings.ForbiddenUpdatePause = 0
	timings.FailedStatusSettle = 0
	timings.SecretSettleDelay = 0
	timings.ConfigMapSettleDelay = 0
	timings.BackupHealthInterval = time.Millisecond
	timings.TestPollInterval = time.Millisecond
	return &config.OperatorConfig{
		Namespace:             testNamespace,
		HandleForbiddenUpdate: true,
		Timings:               timings,
	}
}

// testEnv wires the controllers to a fake API server.
type testEnv struct {
	client   client.Client
	recorder *record.FakeRecorder
	executor *fakeExecutor
	clients  *fakeClients
	config   *config.OperatorConfig
	state    *kube.StateClient
}

func newTestEnv(t *testing.T, funcs *interceptor.Funcs, objs ...client.Object) *testEnv {
	t.Helper()
	builder := fake.NewClientBuilder().
		WithScheme(testScheme).
		WithStatusSubresource(&rabbitmqv2.RabbitMQService{}).
		WithObjects(objs...)
	if funcs != nil {
		builder = builder.WithInterceptorFuncs(*funcs)
	}
	c := builder.Build()

	env := &testEnv{
		client:   c,
		recorder: record.NewFakeRecorder(100),
		executor: &fakeExecutor{},
		clients:  &fakeClients{management: &fakeManagement{alive: true}, daemon: &fakeDaemon{ready: true}},
		config:   testConfig(),
	}
	env.state = kube.NewStateClient(c, c, kube.Options{
		Namespace:             testNamespace,
		HandleForbiddenUpdate: true,
		Executor:              env.executor,
	})
	return env
}

func (e *testEnv) serviceReconciler() *RabbitMQServiceReconciler {
	return &RabbitMQServiceReconciler{
		Client:    e.client,
		APIReader: e.client,
		Scheme:    testScheme,
		Recorder:  e.recorder,
		Config:    e.config,
		State:     e.state,
		Infra:     infra.NewManager(e.state),
		Clients:   e.clients,
	}
}

func (e *testEnv) credentialsReconciler() *CredentialsReconciler {
	return &CredentialsReconciler{
		Client:    e.client,
		APIReader: e.client,
		Recorder:  e.recorder,
		Config:    e.config,
		State:     e.state,
		Clients:   e.clients,
	}
}

func (e *testEnv) configReloadReconciler() *ConfigReloadReconciler {
	return &ConfigReloadReconciler{
		Client:    e.client,
		APIReader: e.client,
		Recorder:  e.recorder,
		Config:    e.config,
		State:     e.state,
		Clients:   e.clients,
	}
}

func (e *testEnv) service(t *testing.T) *rabbitmqv2.RabbitMQService {
	t.Helper()
	service := &rabbitmqv2.RabbitMQService{}
	require.NoError(t, e.client.Get(context.Background(), serviceKey, service))
	return service
}

// events drains the recorder.
func (e *testEnv) events() []string {
	var out []string
	for {
		select {
		case event := <-e.recorder.Events:
			out = append(out, event)
		default:
			return out
		}
	}
}

func newService(spec rabbitmqv2.RabbitMQServiceSpec) *rabbitmqv2.RabbitMQService {
	return &rabbitmqv2.RabbitMQService{
		ObjectMeta: metav1.ObjectMeta{Name: constants.ServiceResourceName, Namespace: testNamespace},
		Spec:       spec,
	}
}

func storageClassSpec(replicas int32) rabbitmqv2.RabbitMQServiceSpec {
	resources := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("1"),
		corev1.ResourceMemory: resource.MustParse("2Gi"),
	}
	storage := resource.MustParse("5Gi")
	return rabbitmqv2.RabbitMQServiceSpec{
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

func defaultSecret(user, password string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: constants.DefaultSecretName, Namespace: testNamespace},
		Data: map[string][]byte{
			constants.SecretKeyUser:     []byte(user),
			constants.SecretKeyPassword: []byte(password),
			constants.SecretKeyCookie:   []byte("cookie"),
		},
	}
}

func readyPod(name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
			Labels:    map[string]string{constants.LabelApp: constants.LabelValueRMQLocal},
		},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{Name: "rabbitmq", Ready: true}},
		},
	}
}

func rabbitMQConfig(content string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: constants.ConfigMapName, Namespace: testNamespace},
		Data:       map[string]string{constants.RabbitMQConfKey: content},
	}
}
