// Package config resolves the operator's behaviour switches from the process
// environment once at startup.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

const (
	defaultAPIGroup     = "netcracker.com"
	defaultWatchTimeout = 300 * time.Second
)

// OperatorConfig holds every environment-derived switch. It is built once in
// cmd/controller and passed to each component.
type OperatorConfig struct {
	// DeleteResources enables the cleanup finalizer on RabbitMQService objects.
	DeleteResources bool
	// HandleForbiddenUpdate allows orphan-delete and recreate of a StatefulSet
	// whose immutable fields changed.
	HandleForbiddenUpdate bool
	ShovelMonitoring      bool
	BackupDaemonEnabled   bool
	// WatchTimeout bounds the informer resync period.
	WatchTimeout time.Duration
	LogLevel     zapcore.Level
	APIGroup     string
	// Namespace is the single namespace the operator manages.
	Namespace string
	// BackupDaemonURL overrides the derived backup daemon address.
	BackupDaemonURL string
	// DRRegion overrides spec.disasterRecovery.region.
	DRRegion string

	ManagementCACertPath   string
	BackupDaemonCACertPath string

	Timings Timings
}

// Timings holds every wait and poll budget. Tests shrink them.
type Timings struct {
	PodPresence poll.Policy
	PodReady    poll.Policy
	Membership  poll.Policy

	CleanVolumePause     time.Duration
	ForbiddenUpdatePause time.Duration
	FailedStatusSettle   time.Duration
	BackupHealthInterval time.Duration
	TestPollInterval     time.Duration

	BackupRequest poll.Policy
	Restore       poll.Policy
	JobStatus     poll.Policy
	LockCheck     poll.Policy
	ScaleDown     poll.Policy
	ScaleUp       poll.Policy

	SecretSettleDelay    time.Duration
	ConfigMapSettleDelay time.Duration
	TerminalWait         poll.Policy

	ShovelSchedule          string
	ShovelRestart           poll.Policy
	ShovelPluginTogglePause time.Duration

	InteractiveCommandDelay time.Duration
	ExecRequestTimeout      time.Duration
}

// DefaultTimings returns the production budgets.
func DefaultTimings() Timings {
	return Timings{
		PodPresence: poll.After(constants.PodPresenceAttempts, constants.PodPresenceInterval),
		PodReady:    poll.Every(constants.PodReadyAttempts, constants.PodReadyInterval),
		Membership:  poll.After(constants.MembershipAttempts, constants.MembershipInterval),

		CleanVolumePause:     constants.CleanVolumePause,
		ForbiddenUpdatePause: constants.ForbiddenUpdatePause,
		FailedStatusSettle:   constants.FailedStatusSettle,
		BackupHealthInterval: constants.BackupHealthInterval,
		TestPollInterval:     constants.TestPollInterval,

		BackupRequest: poll.Every(constants.BackupRequestAttempts, constants.BackupRequestInterval),
		Restore:       poll.Every(constants.BackupRequestAttempts, constants.BackupRequestInterval),
		JobStatus:     poll.Every(constants.JobStatusAttempts, constants.JobStatusInterval),
		LockCheck:     poll.Every(constants.LockCheckAttempts, constants.LockCheckInterval),
		ScaleDown:     poll.Every(constants.ScaleDownAttempts, constants.ScaleDownInterval),
		ScaleUp:       poll.After(constants.ScaleUpAttempts, constants.ScaleUpInterval),

		SecretSettleDelay:    constants.SecretSettleDelay,
		ConfigMapSettleDelay: constants.ConfigMapSettleDelay,
		TerminalWait:         poll.After(constants.TerminalWaitAttempts, constants.TerminalWaitInterval),

		ShovelSchedule:          constants.ShovelMonitorSchedule,
		ShovelRestart:           poll.Every(constants.ShovelRestartAttempts, constants.ShovelRestartInterval),
		ShovelPluginTogglePause: constants.ShovelPluginTogglePause,

		InteractiveCommandDelay: constants.InteractiveCommandDelay,
		ExecRequestTimeout:      constants.ExecRequestTimeout,
	}
}

// Load reads the operator configuration through getenv (os.Getenv in production).
func Load(getenv func(string) string) (*OperatorConfig, error) {
	cfg := &OperatorConfig{
		DeleteResources:        IsTruthy(getenv(constants.EnvOperatorDeleteResources)),
		HandleForbiddenUpdate:  true,
		ShovelMonitoring:       IsTruthy(getenv(constants.EnvEnableShovelMonitoring)),
		BackupDaemonEnabled:    IsTruthy(getenv(constants.EnvBackupDaemonEnabled)),
		WatchTimeout:           defaultWatchTimeout,
		LogLevel:               zapcore.InfoLevel,
		APIGroup:               defaultAPIGroup,
		BackupDaemonURL:        strings.TrimSpace(getenv(constants.EnvBackupDaemonURL)),
		DRRegion:               strings.TrimSpace(getenv(constants.EnvDRRegion)),
		ManagementCACertPath:   constants.ManagementCACertPath,
		BackupDaemonCACertPath: constants.BackupDaemonCACert,
		Timings:                DefaultTimings(),
	}

	if v := getenv(constants.EnvHandleForbiddenUpdate); v != "" {
		cfg.HandleForbiddenUpdate = IsTruthy(v)
	}

	if v := strings.TrimSpace(getenv(constants.EnvOperatorWatchTimeout)); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid %s %q: expected a positive number of seconds", constants.EnvOperatorWatchTimeout, v)
		}
		cfg.WatchTimeout = time.Duration(seconds) * time.Second
	}

	if v := getenv(constants.EnvLogLevel); v != "" {
		level, err := ParseLogLevel(v)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	if v := strings.TrimSpace(getenv(constants.EnvAPIGroup)); v != "" {
		cfg.APIGroup = v
	}

	cfg.Namespace = strings.TrimSpace(getenv(constants.EnvWatchNamespace))
	if cfg.Namespace == "" {
		cfg.Namespace = strings.TrimSpace(getenv(constants.EnvPodNamespace))
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("%s or %s must be set", constants.EnvWatchNamespace, constants.EnvPodNamespace)
	}

	return cfg, nil
}

// IsTruthy reports whether v is one of the accepted positive values.
func IsTruthy(v string) bool {
	switch strings.TrimSpace(v) {
	case "true", "True", "yes", "Yes", "1":
		return true
	default:
		return false
	}
}

// ParseLogLevel maps a LOGLEVEL value to a zap level.
func ParseLogLevel(v string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR", "CRITICAL":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid %s %q", constants.EnvLogLevel, v)
	}
}
