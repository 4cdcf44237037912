package constants

// Common Kubernetes label keys used by the operator.
const (
	LabelAppName     = "app.kubernetes.io/name"
	LabelAppInstance = "app.kubernetes.io/instance"

	LabelApp              = "app"
	LabelRabbitMQApp      = "rabbitmq-app"
	LabelName             = "name"
	LabelComponent        = "component"
	LabelDeploymentConfig = "deploymentconfig"
	LabelHostname         = "kubernetes.io/hostname"
)

// Common label values used by the operator.
const (
	LabelValueRMQLocal = "rmqlocal"
	LabelValueRabbitMQ = "rabbitmq"
)

// Annotation keys set on managed objects.
const (
	AnnotationVeleroPreHook       = "pre.hook.backup.velero.io/command"
	AnnotationVeleroPreHookValue  = `["sync"]`
	AnnotationBetaStorageClass    = "volume.beta.kubernetes.io/storage-class"
	TestConditionReason           = "IntegrationTestsExecutionStatus"
	ForbiddenStatefulSetUpdateMsg = "Forbidden: updates to statefulset spec for fields"
)
