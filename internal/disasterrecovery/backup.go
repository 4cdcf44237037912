package disasterrecovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/netcracker/rabbitmq-operator/internal/backupdaemon"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// Daemon is the subset of the backup daemon API used by a switchover.
type Daemon interface {
	FullBackup(ctx context.Context) (string, error)
	Restore(ctx context.Context, id string) (string, error)
	ListBackups(ctx context.Context) ([]string, error)
	BackupInfo(ctx context.Context, id string) (*backupdaemon.BackupInfo, error)
	JobStatus(ctx context.Context, id string) (*backupdaemon.JobStatus, error)
}

// Failure messages recorded in the disaster recovery status.
const (
	MessageBackupNotStarted   = "can not perform full backup"
	MessageBackupFailed       = "full backup was performed but was not succeeded"
	MessageRestoreNotStarted  = "can not restore last full backup"
	MessageRestoreFailed      = "backup was restored but restore task was not succeeded"
	messageNoForeignBackup    = "last backup from another region is not found"
	messageDaemonNotAvailable = "RabbitMQ Backup daemon is not up after %d seconds"
)

var errNoForeignBackup = errors.New(messageNoForeignBackup)

// performBackup takes a full backup and waits for it to succeed.
func (s *Switchover) performBackup(ctx context.Context, logger logr.Logger) error {
	logger.Info("Performing full backup")
	var backupID string
	err := poll.RetryPolicy{
		Attempts:  s.timings.BackupRequest.Attempts,
		Interval:  s.timings.BackupRequest.Interval,
		Retriable: operatorerrors.IsTransient,
	}.Do(ctx, func(ctx context.Context) error {
		id, err := s.daemon.FullBackup(ctx)
		if err != nil {
			logger.Info("Full backup request failed", "error", err.Error())
			return err
		}
		backupID = id
		return nil
	})
	if err != nil || backupID == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return operatorerrors.NewDisasterRecovery(MessageBackupNotStarted)
	}

	logger.Info("Backup was performed, checking job status", "backupID", backupID)
	ok, err := s.waitJob(ctx, backupID)
	if err != nil {
		return err
	}
	if !ok {
		return operatorerrors.NewDisasterRecovery(MessageBackupFailed)
	}
	logger.Info("Backup was performed successfully", "backupID", backupID)
	return nil
}

// restoreLatest restores the newest usable full backup taken in another
// region. With noWait, finding no such backup is not an error.
func (s *Switchover) restoreLatest(ctx context.Context, logger logr.Logger, region string, noWait bool) error {
	logger.Info("Performing restore", "region", region)
	var taskID string
	err := poll.RetryPolicy{
		Attempts: s.timings.Restore.Attempts,
		Interval: s.timings.Restore.Interval,
	}.Do(ctx, func(ctx context.Context) error {
		backupID, err := s.latestForeignBackup(ctx, logger, region)
		if err != nil {
			logger.Info("Restore attempt failed", "error", err.Error())
			return err
		}
		logger.Info("Restoring backup", "backupID", backupID)
		id, err := s.daemon.Restore(ctx, backupID)
		if err != nil {
			logger.Info("Restore request failed", "error", err.Error())
			return err
		}
		taskID = id
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if noWait && errors.Is(err, errNoForeignBackup) {
			logger.Info("There is no backup from another region to restore, continuing because noWait is set")
			return nil
		}
		return operatorerrors.NewDisasterRecovery(MessageRestoreNotStarted)
	}

	logger.Info("Backup restore started, checking job status", "taskID", taskID)
	ok, err := s.waitJob(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return operatorerrors.NewDisasterRecovery(MessageRestoreFailed)
	}
	logger.Info("Backup was restored successfully", "taskID", taskID)
	return nil
}

// latestForeignBackup scans backups newest first for an unlocked successful
// full backup from a region other than region.
func (s *Switchover) latestForeignBackup(ctx context.Context, logger logr.Logger, region string) (string, error) {
	ids, err := s.daemon.ListBackups(ctx)
	if err != nil {
		return "", err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		info, err := s.daemon.BackupInfo(ctx, id)
		if err != nil {
			logger.Info("Skipping unreadable backup", "backupID", id, "error", err.Error())
			continue
		}
		if len(info.CustomVars) == 0 {
			continue
		}
		if !info.IsFull() || info.Region() == region {
			continue
		}
		logger.Info("Backup matches, checking lock", "backupID", id)
		unlocked, err := s.unlocked(ctx, id)
		if err != nil {
			return "", err
		}
		if unlocked {
			return id, nil
		}
	}
	logger.Info("No matching backups found")
	return "", errNoForeignBackup
}

// unlocked waits for backup id to be released. A failed backup is never
// usable and a backup still locked when the budget runs out counts as locked.
func (s *Switchover) unlocked(ctx context.Context, id string) (bool, error) {
	usable := false
	err := poll.Until(ctx, s.timings.LockCheck, func(ctx context.Context) (bool, error) {
		info, err := s.daemon.BackupInfo(ctx, id)
		if err != nil {
			return false, err
		}
		if info.Failed {
			return true, nil
		}
		if !info.Locked {
			usable = true
			return true, nil
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return usable, nil
}

// waitJob polls a backup or restore job until it succeeds or fails. A job
// still running when the budget runs out counts as failed.
func (s *Switchover) waitJob(ctx context.Context, id string) (bool, error) {
	succeeded := false
	err := poll.Until(ctx, s.timings.JobStatus, func(ctx context.Context) (bool, error) {
		status, err := s.daemon.JobStatus(ctx, id)
		if err != nil {
			return false, fmt.Errorf("failed to read status of job %s: %w", id, err)
		}
		switch status.Status {
		case backupdaemon.JobSuccessful:
			succeeded = true
			return true, nil
		case backupdaemon.JobFailed:
			return true, nil
		default:
			return false, nil
		}
	})
	if errors.Is(err, poll.ErrExhausted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return succeeded, nil
}
