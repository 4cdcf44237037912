package disasterrecovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/backupdaemon"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/httpapi"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

type fakeDaemon struct {
	calls []string

	backupErr  error
	backupID   string
	jobs       map[string][]string
	backups    []string
	infos      map[string][]*backupdaemon.BackupInfo
	restoreErr error
	restored   []string
}

func (f *fakeDaemon) FullBackup(context.Context) (string, error) {
	f.calls = append(f.calls, "backup")
	return f.backupID, f.backupErr
}

func (f *fakeDaemon) Restore(_ context.Context, id string) (string, error) {
	f.calls = append(f.calls, "restore "+id)
	if f.restoreErr != nil {
		return "", f.restoreErr
	}
	f.restored = append(f.restored, id)
	return "task-" + id, nil
}

func (f *fakeDaemon) ListBackups(context.Context) ([]string, error) {
	return f.backups, nil
}

// BackupInfo returns the queued infos of id one by one and repeats the last.
func (f *fakeDaemon) BackupInfo(_ context.Context, id string) (*backupdaemon.BackupInfo, error) {
	queue := f.infos[id]
	if len(queue) == 0 {
		return nil, errors.New("unexpected status 404")
	}
	info := queue[0]
	if len(queue) > 1 {
		f.infos[id] = queue[1:]
	}
	return info, nil
}

func (f *fakeDaemon) JobStatus(_ context.Context, id string) (*backupdaemon.JobStatus, error) {
	queue := f.jobs[id]
	if len(queue) == 0 {
		return &backupdaemon.JobStatus{Status: "Processing"}, nil
	}
	status := queue[0]
	if len(queue) > 1 {
		f.jobs[id] = queue[1:]
	}
	return &backupdaemon.JobStatus{Status: status}, nil
}

type fakeScaler struct {
	calls    []string
	replicas int32
	// available is reported once the daemon was scaled up.
	available int32
}

func (f *fakeScaler) ScaleDeployment(_ context.Context, name string, replicas int32) error {
	if name != constants.BackupDaemonName {
		return errors.New("unexpected deployment " + name)
	}
	f.calls = append(f.calls, map[int32]string{0: "scale down", 1: "scale up"}[replicas])
	f.replicas = replicas
	return nil
}

func (f *fakeScaler) DeploymentStatus(context.Context, string) (appsv1.DeploymentStatus, error) {
	status := appsv1.DeploymentStatus{Replicas: f.replicas}
	if f.replicas > 0 {
		status.AvailableReplicas = f.available
	}
	return status, nil
}

func fastTimings() config.Timings {
	t := config.DefaultTimings()
	t.BackupRequest = poll.Every(3, time.Millisecond)
	t.Restore = poll.Every(3, time.Millisecond)
	t.JobStatus = poll.Every(6, time.Millisecond)
	t.LockCheck = poll.Every(3, time.Millisecond)
	t.ScaleDown = poll.Every(6, time.Millisecond)
	t.ScaleUp = poll.After(12, time.Millisecond)
	return t
}

func fullBackup(region string, locked bool) *backupdaemon.BackupInfo {
	return &backupdaemon.BackupInfo{
		DBList:     backupdaemon.FullBackupDBList,
		Locked:     locked,
		CustomVars: map[string]string{"region": region},
	}
}

func TestRun_FreshActivationScalesUpWithoutRestore(t *testing.T) {
	daemon := &fakeDaemon{}
	scaler := &fakeScaler{available: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), "",
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us"})
	require.NoError(t, err)

	assert.Equal(t, rabbitmqv2.SwitchoverDone, status.Status)
	assert.Equal(t, constants.MessageFreshInstallation, status.Message)
	assert.Equal(t, []string{"scale up"}, scaler.calls)
	assert.Empty(t, daemon.calls, "no restore on a fresh installation")
}

func TestRun_FailedBackupAbortsWithoutScaleDown(t *testing.T) {
	daemon := &fakeDaemon{
		backupID: "b1",
		jobs:     map[string][]string{"b1": {"Processing", backupdaemon.JobFailed}},
	}
	scaler := &fakeScaler{replicas: 1, available: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeActive,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeStandby})
	require.NoError(t, err)

	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageBackupFailed, status.Message)
	assert.Equal(t, []string{"backup"}, daemon.calls)
	assert.Empty(t, scaler.calls, "daemon must not be scaled down after a failed backup")
}

func TestRun_StandbyFromActiveBacksUpThenScalesDown(t *testing.T) {
	daemon := &fakeDaemon{
		backupID: "b1",
		jobs:     map[string][]string{"b1": {backupdaemon.JobSuccessful}},
	}
	scaler := &fakeScaler{replicas: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeActive,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeStandby})
	require.NoError(t, err)

	assert.Equal(t, rabbitmqv2.SwitchoverDone, status.Status)
	assert.Equal(t, constants.MessageReplicationFinished, status.Message)
	assert.Equal(t, []string{"backup"}, daemon.calls)
	assert.Equal(t, []string{"scale down"}, scaler.calls)
}

func TestRun_BackupRequestExhausted(t *testing.T) {
	daemon := &fakeDaemon{backupErr: errors.New("connection refused")}
	s := New(daemon, &fakeScaler{}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeActive,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeDisable})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageBackupNotStarted, status.Message)
	assert.Len(t, daemon.calls, 3)
}

func TestRun_BackupRequestRejectedIsNotRetried(t *testing.T) {
	daemon := &fakeDaemon{backupErr: &httpapi.StatusError{Op: "failed to start full backup", StatusCode: 400, Body: "bad request"}}
	scaler := &fakeScaler{replicas: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeActive,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeStandby})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageBackupNotStarted, status.Message)
	assert.Equal(t, []string{"backup"}, daemon.calls)
	assert.Empty(t, scaler.calls)
}

func TestRun_StandbyFromStandbyOnlyScalesDown(t *testing.T) {
	daemon := &fakeDaemon{}
	scaler := &fakeScaler{replicas: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeDisable,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeStandby})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverDone, status.Status)
	assert.Empty(t, daemon.calls)
	assert.Equal(t, []string{"scale down"}, scaler.calls)
}

func TestRun_ActivationRestoresNewestForeignBackup(t *testing.T) {
	daemon := &fakeDaemon{
		backups: []string{"old-foreign", "own", "new-foreign", "broken", "partial"},
		infos: map[string][]*backupdaemon.BackupInfo{
			"old-foreign": {fullBackup("EU", false)},
			"own":         {fullBackup("US", false)},
			"new-foreign": {fullBackup("eu", true), fullBackup("eu", false)},
			"partial":     {{DBList: "vhost1", CustomVars: map[string]string{"region": "eu"}}},
		},
		jobs: map[string][]string{"task-new-foreign": {backupdaemon.JobSuccessful}},
	}
	scaler := &fakeScaler{available: 1}
	s := New(daemon, scaler, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeStandby,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us"})
	require.NoError(t, err)

	assert.Equal(t, rabbitmqv2.SwitchoverDone, status.Status)
	assert.Equal(t, []string{"new-foreign"}, daemon.restored)
	assert.Equal(t, []string{"scale up"}, scaler.calls)
}

func TestRun_LockCheckExhaustionIsTreatedAsLocked(t *testing.T) {
	daemon := &fakeDaemon{
		backups: []string{"foreign"},
		infos:   map[string][]*backupdaemon.BackupInfo{"foreign": {fullBackup("eu", true)}},
	}
	s := New(daemon, &fakeScaler{available: 1}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeStandby,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us"})
	require.NoError(t, err)

	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageRestoreNotStarted, status.Message)
	assert.Empty(t, daemon.restored)
}

func TestRun_NoWaitSkipsMissingBackup(t *testing.T) {
	daemon := &fakeDaemon{backups: []string{}}
	s := New(daemon, &fakeScaler{available: 1}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeStandby,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us", NoWait: true})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverDone, status.Status)
	assert.Equal(t, constants.MessageReplicationFinished, status.Message)
}

func TestRun_RestoreRequestErrorsAreNotSkippedByNoWait(t *testing.T) {
	daemon := &fakeDaemon{
		backups:    []string{"foreign"},
		infos:      map[string][]*backupdaemon.BackupInfo{"foreign": {fullBackup("eu", false)}},
		restoreErr: errors.New("unexpected status 400"),
	}
	s := New(daemon, &fakeScaler{available: 1}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeStandby,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us", NoWait: true})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageRestoreNotStarted, status.Message)
}

func TestRun_RestoreJobFailure(t *testing.T) {
	daemon := &fakeDaemon{
		backups: []string{"foreign"},
		infos:   map[string][]*backupdaemon.BackupInfo{"foreign": {fullBackup("eu", false)}},
		jobs:    map[string][]string{"task-foreign": {backupdaemon.JobFailed}},
	}
	s := New(daemon, &fakeScaler{available: 1}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeActive,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us"})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, MessageRestoreFailed, status.Message)
}

func TestRun_RegionOverrideWins(t *testing.T) {
	daemon := &fakeDaemon{
		backups: []string{"eu-backup"},
		infos:   map[string][]*backupdaemon.BackupInfo{"eu-backup": {fullBackup("eu", false)}},
	}
	s := New(daemon, &fakeScaler{available: 1}, fastTimings(), "EU")

	status, err := s.Run(context.Background(), logr.Discard(), rabbitmqv2.DisasterRecoveryModeStandby,
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive, Region: "us"})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status, "own-region backups are never restored")
	assert.Empty(t, daemon.restored)
}

func TestRun_ScaleUpTimeout(t *testing.T) {
	s := New(&fakeDaemon{}, &fakeScaler{available: 0}, fastTimings(), "")

	status, err := s.Run(context.Background(), logr.Discard(), "",
		&rabbitmqv2.DisasterRecoverySpec{Mode: rabbitmqv2.DisasterRecoveryModeActive})
	require.NoError(t, err)
	assert.Equal(t, rabbitmqv2.SwitchoverFailed, status.Status)
	assert.Equal(t, "RabbitMQ Backup daemon is not up after 0 seconds", status.Message)
}

func TestStarted(t *testing.T) {
	status := Started(rabbitmqv2.DisasterRecoveryModeStandby)
	assert.Equal(t, rabbitmqv2.SwitchoverRunning, status.Status)
	assert.Equal(t, constants.MessageSwitchoverStarted, status.Message)
}
