package constants

// Well-known object names.
const (
	ServiceResourceName = "rabbitmq-service"

	StatefulSetName       = "rmqlocal"
	ExternalServiceName   = "rabbitmq"
	NodePortServiceName   = "rabbitmq-nodeport"
	ConfigMapName         = "rabbitmq-config"
	DefaultSecretName     = "rabbitmq-default-secret" // #nosec G101 -- object name, not a credential
	MonitoringSecretName  = "rabbitmq-monitoring"     // #nosec G101 -- object name, not a credential
	LDAPSecretName        = "ldap-credentials"        // #nosec G101 -- object name, not a credential
	TrustedCertsSecret    = "rabbitmq-trusted-certs"  // #nosec G101 -- object name, not a credential
	TelegrafName          = "telegraf"
	BackupDaemonName      = "rabbitmq-backup-daemon"
	TestDeploymentName    = "rabbitmq-integration-tests"
	RabbitMQServiceAcct   = "rabbitmq"
	OperatorServiceAcct   = "rabbitmq-operator"
	VolumeClaimTemplate   = "default-vct-name"
	ConfigVolumeName      = "config-volume"
	SSLVolumeName         = "ssl-certs"
	HostpathDataVolume    = "rmqvolumedatamount"
	TrustedCertsVolume    = "trusted-certs"
	PVCSuffix             = "-rmq-pvc"
	HostpathPodNameSuffix = "-0"
)

// Secret data keys.
const (
	SecretKeyUser     = "user"
	SecretKeyPassword = "password"
	SecretKeyCookie   = "rmqcookie"
)

// Filesystem paths inside the operator and RabbitMQ containers.
const (
	RabbitMQDataDir       = "/var/lib/rabbitmq"
	CleanVolumesFlagFile  = "/var/lib/rabbitmq/delete_all"
	ManagementCACertPath  = "/tls/ca.crt"
	BackupDaemonCACert    = "/backupTLS/ca.crt"
	InstalledHostpathMark = "rabbit_peer_discovery_classic_config"
	RabbitMQConfKey       = "rabbitmq.conf"
)

// Ports.
const (
	PortManagement    = 15672
	PortManagementTLS = 15671
	PortAMQP          = 5672
	PortAMQPTLS       = 5671
	PortEPMD          = 4369
	PortDistribution  = 25672
	PortPrometheus    = 15692
	PortTelegraf      = 8096

	BackupDaemonPort    = 8080
	BackupDaemonTLSPort = 8443
)

// Controller names. They double as operation lock holders.
const (
	ControllerNameRabbitMQService = "rabbitmqservice"
	ControllerNameCredentials     = "rabbitmq-credentials"
	ControllerNameConfigReload    = "rabbitmq-config-reload"
)
