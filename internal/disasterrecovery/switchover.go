// Package disasterrecovery moves a RabbitMQ service between the active,
// standby and disable roles by driving the backup daemon.
package disasterrecovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// Scaler scales the backup daemon Deployment.
type Scaler interface {
	ScaleDeployment(ctx context.Context, name string, replicas int32) error
	DeploymentStatus(ctx context.Context, name string) (appsv1.DeploymentStatus, error)
}

// Switchover executes disaster recovery role changes.
type Switchover struct {
	daemon  Daemon
	scaler  Scaler
	timings config.Timings
	// regionOverride replaces spec.disasterRecovery.region when set.
	regionOverride string
}

// New returns a Switchover.
func New(daemon Daemon, scaler Scaler, timings config.Timings, regionOverride string) *Switchover {
	return &Switchover{daemon: daemon, scaler: scaler, timings: timings, regionOverride: regionOverride}
}

// Started is the status recorded before a switchover begins.
func Started(mode rabbitmqv2.DisasterRecoveryMode) rabbitmqv2.DisasterRecoveryStatus {
	return rabbitmqv2.DisasterRecoveryStatus{
		Mode:    mode,
		Status:  rabbitmqv2.SwitchoverRunning,
		Message: constants.MessageSwitchoverStarted,
	}
}

// Run moves the service from the previously recorded mode to the requested
// one and returns the outcome to record. previous is empty when no switchover
// was ever recorded. Failures are reported in the returned status; the error
// is non-nil only when ctx ends.
func (s *Switchover) Run(ctx context.Context, logger logr.Logger, previous rabbitmqv2.DisasterRecoveryMode, target *rabbitmqv2.DisasterRecoverySpec) (rabbitmqv2.DisasterRecoveryStatus, error) {
	logger = logger.WithValues("mode", target.Mode, "previousMode", previous, "noWait", target.NoWait)
	logger.Info("Starting switchover")

	err := s.run(ctx, logger, previous, target)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return rabbitmqv2.DisasterRecoveryStatus{}, ctxErr
	}

	outcome := rabbitmqv2.DisasterRecoveryStatus{Mode: target.Mode, Status: rabbitmqv2.SwitchoverDone}
	if err != nil {
		outcome.Status = rabbitmqv2.SwitchoverFailed
		outcome.Message = err.Error()
		logger.Error(err, "Switchover failed")
		return outcome, nil
	}
	if previous != "" {
		outcome.Message = constants.MessageReplicationFinished
	} else {
		outcome.Message = constants.MessageFreshInstallation
	}
	logger.Info("Switchover finished successfully")
	return outcome, nil
}

func (s *Switchover) run(ctx context.Context, logger logr.Logger, previous rabbitmqv2.DisasterRecoveryMode, target *rabbitmqv2.DisasterRecoverySpec) error {
	switch target.Mode {
	case rabbitmqv2.DisasterRecoveryModeStandby, rabbitmqv2.DisasterRecoveryModeDisable:
		if wasActive(previous) {
			if err := s.performBackup(ctx, logger); err != nil {
				return err
			}
		}
		return s.scaleDown(ctx, logger)
	case rabbitmqv2.DisasterRecoveryModeActive:
		if err := s.scaleUp(ctx, logger); err != nil {
			return err
		}
		if previous == "" {
			return nil
		}
		return s.restoreLatest(ctx, logger, s.region(target), target.NoWait)
	default:
		return operatorerrors.NewDisasterRecovery("unsupported disaster recovery mode %q", target.Mode)
	}
}

// wasActive reports whether previous is a recorded mode other than standby
// and disable.
func wasActive(previous rabbitmqv2.DisasterRecoveryMode) bool {
	return previous != "" &&
		previous != rabbitmqv2.DisasterRecoveryModeStandby &&
		previous != rabbitmqv2.DisasterRecoveryModeDisable
}

func (s *Switchover) region(target *rabbitmqv2.DisasterRecoverySpec) string {
	if s.regionOverride != "" {
		return strings.ToLower(s.regionOverride)
	}
	return strings.ToLower(target.Region)
}

// scaleDown stops the backup daemon. Not observing zero replicas in time is
// logged only.
func (s *Switchover) scaleDown(ctx context.Context, logger logr.Logger) error {
	logger.Info("Backup daemon scale-down started")
	if err := s.scaler.ScaleDeployment(ctx, constants.BackupDaemonName, 0); err != nil {
		return err
	}
	err := poll.Until(ctx, s.timings.ScaleDown, func(ctx context.Context) (bool, error) {
		status, err := s.scaler.DeploymentStatus(ctx, constants.BackupDaemonName)
		if err != nil {
			return false, err
		}
		return status.Replicas == 0, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		logger.Info("Backup daemon was not scaled down during switchover")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Backup daemon scale-down completed")
	return nil
}

// scaleUp starts the backup daemon and waits for one available replica.
func (s *Switchover) scaleUp(ctx context.Context, logger logr.Logger) error {
	logger.Info("Backup daemon scale-up started")
	if err := s.scaler.ScaleDeployment(ctx, constants.BackupDaemonName, 1); err != nil {
		return err
	}
	err := poll.Until(ctx, s.timings.ScaleUp, func(ctx context.Context) (bool, error) {
		status, err := s.scaler.DeploymentStatus(ctx, constants.BackupDaemonName)
		if err != nil {
			return false, err
		}
		return status.AvailableReplicas == 1, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return operatorerrors.NewDisasterRecovery(messageDaemonNotAvailable, int(s.timings.ScaleUp.Budget().Seconds()))
	}
	if err != nil {
		return fmt.Errorf("failed waiting for backup daemon scale-up: %w", err)
	}
	logger.Info("Backup daemon scale-up completed")
	return nil
}
