package constants

import "time"

// RequeueShort is the delay before retrying a workflow that found the
// operation lock held.
const RequeueShort = 5 * time.Second

// Wait and poll budgets of the reconciliation pass.
const (
	PodPresenceAttempts = 30
	PodPresenceInterval = 30 * time.Second
	PodReadyAttempts    = 30
	PodReadyInterval    = 30 * time.Second

	MembershipAttempts = 30
	MembershipInterval = 30 * time.Second

	CleanVolumePause       = 5 * time.Second
	ForbiddenUpdatePause   = 5 * time.Second
	FailedStatusSettle     = 5 * time.Second
	DefaultBackupDaemonTTL = 180 * time.Second
	BackupHealthInterval   = 10 * time.Second

	DefaultTestTimeout = 1800 * time.Second
	TestPollInterval   = 10 * time.Second
)

// Disaster recovery budgets.
const (
	BackupRequestAttempts = 3
	BackupRequestInterval = 10 * time.Second
	JobStatusAttempts     = 6
	JobStatusInterval     = 10 * time.Second
	LockCheckAttempts     = 3
	LockCheckInterval     = 10 * time.Second

	ScaleDownAttempts = 6
	ScaleDownInterval = 10 * time.Second
	ScaleUpAttempts   = 12
	ScaleUpInterval   = 10 * time.Second
)

// Secret and ConfigMap handler budgets.
const (
	SecretSettleDelay    = 20 * time.Second
	ConfigMapSettleDelay = 45 * time.Second
	TerminalWaitAttempts = 60
	TerminalWaitInterval = 15 * time.Second
)

// Shovel monitor budgets.
const (
	ShovelMonitorSchedule   = "@every 15m"
	ShovelAliveRatio        = 0.8
	ShovelRestartAttempts   = 3
	ShovelRestartInterval   = 5 * time.Second
	ShovelPluginTogglePause = 10 * time.Second

	InteractiveCommandDelay = 5 * time.Second
	ExecRequestTimeout      = 30 * time.Second
)
