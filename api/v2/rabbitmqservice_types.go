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

package v2

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// RabbitMQServiceFinalizer guards resource cleanup when the operator is
	// configured to delete managed resources together with the custom resource.
	RabbitMQServiceFinalizer = "netcracker.com/rabbitmq-cleanup"

	// SwitchoverRetryAnnotation re-triggers a disaster recovery switchover when its value changes.
	SwitchoverRetryAnnotation = "switchoverRetry"
)

// ConditionType is the type of an entry in the status condition log.
type ConditionType string

const (
	ConditionInProgress ConditionType = "In progress"
	ConditionSuccessful ConditionType = "Successful"
	ConditionFailed     ConditionType = "Failed"
)

// DisasterRecoveryMode is the requested role of the cluster.
// +kubebuilder:validation:Enum=active;standby;disable
type DisasterRecoveryMode string

const (
	DisasterRecoveryModeActive  DisasterRecoveryMode = "active"
	DisasterRecoveryModeStandby DisasterRecoveryMode = "standby"
	DisasterRecoveryModeDisable DisasterRecoveryMode = "disable"
)

// SwitchoverState is the progress of the last disaster recovery switchover.
type SwitchoverState string

const (
	SwitchoverRunning SwitchoverState = "running"
	SwitchoverDone    SwitchoverState = "done"
	SwitchoverFailed  SwitchoverState = "failed"
)

// ServiceOperation identifies the workflow holding the operation lock.
// +kubebuilder:validation:Enum=Reconcile;Switchover;CredentialRotation;ConfigReload
type ServiceOperation string

const (
	OperationReconcile          ServiceOperation = "Reconcile"
	OperationSwitchover         ServiceOperation = "Switchover"
	OperationCredentialRotation ServiceOperation = "CredentialRotation"
	OperationConfigReload       ServiceOperation = "ConfigReload"
)

// ResourcesSpec holds compute and storage settings of RabbitMQ pods.
type ResourcesSpec struct {
	// +optional
	Limits corev1.ResourceList `json:"limits,omitempty"`
	// +optional
	Requests corev1.ResourceList `json:"requests,omitempty"`
	// Storage is the size of each RabbitMQ data volume.
	// +optional
	Storage *resource.Quantity `json:"storage,omitempty"`
	// StorageClass is used for volume claim templates and hostpath PVCs.
	// +optional
	StorageClass *string `json:"storageclass,omitempty"`
}

// ProbeOverride overrides individual fields of the built-in probes.
// Unset fields keep their defaults.
type ProbeOverride struct {
	// +optional
	FailureThreshold *int32 `json:"failure_threshold,omitempty"`
	// +optional
	InitialDelaySeconds *int32 `json:"initial_delay_seconds,omitempty"`
	// +optional
	PeriodSeconds *int32 `json:"period_seconds,omitempty"`
	// +optional
	SuccessThreshold *int32 `json:"success_threshold,omitempty"`
	// +optional
	TimeoutSeconds *int32 `json:"timeout_seconds,omitempty"`
}

// NodePortServiceSpec configures the optional NodePort service.
type NodePortServiceSpec struct {
	// +optional
	Install bool `json:"install,omitempty"`
	// +optional
	AMQPNodePort int32 `json:"amqpNodePort,omitempty"`
	// +optional
	MgmtNodePort int32 `json:"mgmtNodePort,omitempty"`
}

// RabbitMQSpec describes the RabbitMQ cluster.
type RabbitMQSpec struct {
	// Replicas is the number of RabbitMQ nodes.
	// +kubebuilder:validation:Minimum=1
	Replicas *int32 `json:"replicas,omitempty"`

	Resources ResourcesSpec `json:"resources,omitempty"`

	// HostpathConfiguration binds each node to a host-local persistent volume.
	// +optional
	HostpathConfiguration bool `json:"hostpath_configuration,omitempty"`
	// Nodes lists the Kubernetes node of each RabbitMQ node (hostpath only).
	// +optional
	Nodes []string `json:"nodes,omitempty"`
	// Volumes lists the persistent volume of each RabbitMQ node (hostpath only).
	// +optional
	Volumes []string `json:"volumes,omitempty"`
	// Selectors lists "key=value" persistent volume selectors (hostpath only).
	// +optional
	Selectors []string `json:"selectors,omitempty"`

	// +kubebuilder:validation:MinLength=1
	DockerImage string `json:"dockerImage,omitempty"`

	// EnvironmentVariables are extra NAME=value pairs for the RabbitMQ container.
	// +optional
	EnvironmentVariables []string `json:"environmentVariables,omitempty"`

	// +optional
	SSLEnabled bool `json:"ssl_enabled,omitempty"`
	// +optional
	SSLSecretName string `json:"ssl_secret_name,omitempty"`
	// +optional
	LDAPEnabled bool `json:"ldap_enabled,omitempty"`
	// +optional
	LDAPSSLEnabled bool `json:"ldap_ssl_enabled,omitempty"`
	// +optional
	IPv6Enabled bool `json:"ipv6_enabled,omitempty"`
	// AutoReboot restarts pods one by one after an update.
	// +optional
	AutoReboot bool `json:"auto_reboot,omitempty"`
	// CleanRabbitMQPVs wipes RabbitMQ data volumes on the next pass.
	// +optional
	CleanRabbitMQPVs bool `json:"clean_rabbitmq_pvs,omitempty"`
	// NonencryptedAccess exposes plain AMQP and management ports. Defaults to true.
	// +optional
	NonencryptedAccess *bool `json:"nonencrypted_access,omitempty"`
	// +optional
	CustomParams map[string]string `json:"custom_params,omitempty"`

	// +optional
	NodePortService *NodePortServiceSpec `json:"nodePortService,omitempty"`

	// +optional
	SecurityContext *corev1.PodSecurityContext `json:"securityContext,omitempty"`
	// +optional
	Affinity *corev1.Affinity `json:"affinity,omitempty"`
	// +optional
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`
	// +optional
	PriorityClassName string `json:"priorityClassName,omitempty"`

	// +optional
	LivenessProbe *ProbeOverride `json:"livenessProbe,omitempty"`
	// +optional
	ReadinessProbe *ProbeOverride `json:"readinessProbe,omitempty"`

	// +optional
	CustomLabels map[string]string `json:"customLabels,omitempty"`
	// +optional
	CustomAnnotations map[string]string `json:"customAnnotations,omitempty"`
}

// TelegrafSpec configures the optional telegraf metrics collector.
type TelegrafSpec struct {
	// +optional
	Install bool `json:"install,omitempty"`
	// +optional
	DockerImage string `json:"dockerImage,omitempty"`
	// +optional
	CustomLabels map[string]string `json:"customLabels,omitempty"`
	// +optional
	SecurityContext *corev1.PodSecurityContext `json:"securityContext,omitempty"`
}

// TestsSpec configures integration test result tracking.
type TestsSpec struct {
	// +optional
	RunTests bool `json:"runTests,omitempty"`
	// RunTestsOnly skips topology changes on update and only waits for tests.
	// +optional
	RunTestsOnly bool `json:"runTestsOnly,omitempty"`
	// +optional
	WaitTestResultOnJob bool `json:"waitTestResultOnJob,omitempty"`
	// Timeout in seconds. Defaults to 1800.
	// +optional
	Timeout *int32 `json:"timeout,omitempty"`
}

// DisasterRecoverySpec requests a disaster recovery role.
type DisasterRecoverySpec struct {
	// +optional
	Mode DisasterRecoveryMode `json:"mode,omitempty"`
	// NoWait lets an activation succeed when no peer backup exists.
	// +optional
	NoWait bool `json:"noWait,omitempty"`
	// Region of this cluster. Backups from other regions are restore candidates.
	// +optional
	Region string `json:"region,omitempty"`
}

// GlobalSpec holds settings shared by every managed component.
type GlobalSpec struct {
	// +optional
	DefaultLabels map[string]string `json:"defaultLabels,omitempty"`
	// +optional
	CustomLabels map[string]string `json:"customLabels,omitempty"`
	// PodReadinessTimeout bounds the backup daemon readiness wait, in seconds. Defaults to 180.
	// +optional
	PodReadinessTimeout *int32 `json:"podReadinessTimeout,omitempty"`
}

// RabbitMQServiceSpec defines the desired state of RabbitMQService.
type RabbitMQServiceSpec struct {
	RabbitMQ RabbitMQSpec `json:"rabbitmq"`
	// +optional
	Telegraf *TelegrafSpec `json:"telegraf,omitempty"`
	// +optional
	Tests *TestsSpec `json:"tests,omitempty"`
	// +optional
	DisasterRecovery *DisasterRecoverySpec `json:"disasterRecovery,omitempty"`
	// +optional
	Global *GlobalSpec `json:"global,omitempty"`
}

// ServiceCondition is one entry of the reconciliation outcome log.
type ServiceCondition struct {
	Type ConditionType `json:"type"`
	// +optional
	Status string `json:"status,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
	// +optional
	Error string `json:"error,omitempty"`
	// +optional
	Timestamp metav1.Time `json:"timestamp,omitempty"`
}

// DisasterRecoveryStatus reports the last switchover.
type DisasterRecoveryStatus struct {
	// +optional
	Mode DisasterRecoveryMode `json:"mode,omitempty"`
	// +optional
	Status SwitchoverState `json:"status,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
}

// CredentialsStatus is the credential baseline rotation compares against.
type CredentialsStatus struct {
	// +optional
	User string `json:"user,omitempty"`
	// Fingerprint is a digest of the password, never the password itself.
	// +optional
	Fingerprint string `json:"fingerprint,omitempty"`
}

// OperationLockStatus records the workflow currently mutating the cluster.
type OperationLockStatus struct {
	Operation ServiceOperation `json:"operation"`
	Holder    string           `json:"holder"`
	// +optional
	Message string `json:"message,omitempty"`
	// +optional
	AcquiredAt *metav1.Time `json:"acquiredAt,omitempty"`
}

// RabbitMQServiceStatus defines the observed state of RabbitMQService.
type RabbitMQServiceStatus struct {
	// Conditions is an ordered log of reconciliation outcomes.
	// +optional
	Conditions []ServiceCondition `json:"conditions,omitempty"`
	// +optional
	DisasterRecoveryStatus *DisasterRecoveryStatus `json:"disasterRecoveryStatus,omitempty"`
	// ObservedSpecHash is the digest of the last reconciled spec, disaster recovery excluded.
	// +optional
	ObservedSpecHash string `json:"observedSpecHash,omitempty"`
	// +optional
	ObservedSwitchoverRetry string `json:"observedSwitchoverRetry,omitempty"`
	// +optional
	Credentials *CredentialsStatus `json:"credentials,omitempty"`
	// ConfigHash is the digest of the RabbitMQ configuration last rolled out.
	// +optional
	ConfigHash string `json:"configHash,omitempty"`
	// +optional
	OperationLock *OperationLockStatus `json:"operationLock,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=rmqs
// +kubebuilder:printcolumn:name="Replicas",type="integer",JSONPath=".spec.rabbitmq.replicas"
// +kubebuilder:printcolumn:name="DR Mode",type="string",JSONPath=".status.disasterRecoveryStatus.mode"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// RabbitMQService is the Schema for the rabbitmqservices API.
type RabbitMQService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RabbitMQServiceSpec   `json:"spec,omitempty"`
	Status RabbitMQServiceStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// RabbitMQServiceList contains a list of RabbitMQService.
type RabbitMQServiceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []RabbitMQService `json:"items"`
}

func init() {
	SchemeBuilder.Register(&RabbitMQService{}, &RabbitMQServiceList{})
}

// ReplicaCount returns the declared replica count, or zero when unset.
func (s *RabbitMQSpec) ReplicaCount() int {
	if s.Replicas == nil {
		return 0
	}
	return int(*s.Replicas)
}

// IsNonencryptedAccess reports whether plain ports are exposed.
func (s *RabbitMQSpec) IsNonencryptedAccess() bool {
	return s.NonencryptedAccess == nil || *s.NonencryptedAccess
}

// IsNodePortRequired reports whether the NodePort service is requested.
func (s *RabbitMQSpec) IsNodePortRequired() bool {
	return s.NodePortService != nil && s.NodePortService.Install
}

// IsTelegrafEnabled reports whether the telegraf deployment is requested.
func (s *RabbitMQServiceSpec) IsTelegrafEnabled() bool {
	return s.Telegraf != nil && s.Telegraf.Install
}

// RunTests reports whether integration tests are part of the pass.
func (s *RabbitMQServiceSpec) RunTests() bool {
	return s.Tests != nil && s.Tests.RunTests
}

// WaitTestResult reports whether the pass waits for the test outcome.
func (s *RabbitMQServiceSpec) WaitTestResult() bool {
	return s.Tests != nil && s.Tests.WaitTestResultOnJob
}

// RunTestsOnly reports whether an update pass only waits for tests.
func (s *RabbitMQServiceSpec) RunTestsOnly() bool {
	return s.Tests != nil && s.Tests.RunTestsOnly
}

// DisasterRecoveryMode returns the requested mode or "" when none is set.
func (s *RabbitMQServiceSpec) DisasterRecoveryMode() DisasterRecoveryMode {
	if s.DisasterRecovery == nil {
		return ""
	}
	return s.DisasterRecovery.Mode
}
