package constants

// Environment variable keys read by the operator at startup.
const (
	EnvOperatorDeleteResources = "OPERATOR_DELETE_RESOURCES"
	EnvHandleForbiddenUpdate   = "HANDLE_FORBIDDEN_UPDATE"
	EnvEnableShovelMonitoring  = "ENABLE_SHOVEL_MONITORING"
	EnvBackupDaemonEnabled     = "BACKUP_DAEMON_ENABLED"
	EnvOperatorWatchTimeout    = "OPERATOR_WATCH_TIMEOUT"
	EnvLogLevel                = "LOGLEVEL"
	EnvAPIGroup                = "API_GROUP"
	EnvWatchNamespace          = "WATCH_NAMESPACE"
	EnvPodNamespace            = "POD_NAMESPACE"
	EnvBackupDaemonURL         = "BACKUP_DAEMON_URL"
	EnvDRRegion                = "DR_REGION"
)

// Environment variable names injected into RabbitMQ containers.
const (
	EnvBrokerNameInternal = "BROKER_NAME_INTERNAL"
	EnvMyPodName          = "MY_POD_NAME"
	EnvMyPodNamespace     = "MY_POD_NAMESPACE"
)
