package constants

// Condition log values.
const (
	ConditionStatusTrue = "True"
	ConditionErrorNone  = "None"
	ConditionErrorSet   = "Error"
)

// User-visible status messages.
const (
	MessagePassStarted         = "RabbitMQ operator started deploy process"
	MessageIPv6Hostpath        = "Hostpath configuration in IPv6 environment is not supported"
	MessageSecretMissing       = "please create RabbitMQ secret"
	MessageHostpathOnlyFields  = "Rabbitmq nodes, pvs or selectors must be specified only in hostpath configuration"
	MessageStorageModeChanged  = "Changing storage configuration is not allowed"
	MessagePodsNotReady        = "RabbitMQ pods are not ready"
	MessageClusterNotUp        = "RabbitMQ cluster fails to come up"
	MessageBackupDaemonBad     = "RabbitMQ backup daemon is not ready"
	MessageTestsFailed         = "RabbitMQ tests failed"
	MessageInstalled           = "RabbitMQ service installed successfully"
	MessageUpdated             = "RabbitMQ service updated successfully"
	MessageInstalledTested     = "RabbitMQ service installed and tested successfully"
	MessageUpdatedTested       = "RabbitMQ service updated and tested successfully"
	MessageCredentialsRotated  = "All pods have been rebooted, changing credentials completed"
	MessageSwitchoverStarted   = "The switchover process for RabbitMQ Service has been started"
	MessageReplicationFinished = "replication has finished successfully"
	MessageFreshInstallation   = "success installation"
	MessageDRModeMissing       = "disaster recovery mode is not specified"
)

// Event reasons.
const (
	ReasonPassStarted        = "ReconcileStarted"
	ReasonPassSucceeded      = "ReconcileSucceeded"
	ReasonPassFailed         = "ReconcileFailed"
	ReasonSwitchover         = "Switchover"
	ReasonSwitchoverFailed   = "SwitchoverFailed"
	ReasonCredentialsRotated = "CredentialsRotated"
	ReasonRotationFailed     = "CredentialRotationFailed"
	ReasonPodsRebooted       = "PodsRebooted"
	ReasonRebootFailed       = "PodRebootFailed"
	ReasonResourcesDeleted   = "ResourcesDeleted"
	ReasonOperationLockHeld  = "OperationLockHeld"
)
