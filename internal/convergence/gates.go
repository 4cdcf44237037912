package convergence

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// HealthWaiter judges backup daemon readiness from its health endpoint.
type HealthWaiter interface {
	WaitReady(ctx context.Context, logger logr.Logger, p poll.Policy) (bool, error)
}

// BackupDaemonGate fails the pass when the backup daemon Deployment exists
// but does not report itself ready within timeout.
func (c *Converger) BackupDaemonGate(ctx context.Context, logger logr.Logger, daemon HealthWaiter, timeout time.Duration) error {
	dep, err := c.cluster.GetDeployment(ctx, constants.BackupDaemonName)
	if err != nil {
		return err
	}
	if dep == nil {
		logger.V(1).Info("Backup daemon is not deployed, skipping readiness gate")
		return nil
	}
	ready, err := daemon.WaitReady(ctx, logger, poll.Within(timeout, c.timings.BackupHealthInterval))
	if err != nil {
		return err
	}
	if !ready {
		return operatorerrors.NewConvergenceTimeout(constants.MessageBackupDaemonBad, nil)
	}
	logger.Info("Backup daemon is ready")
	return nil
}

// WaitTests waits within timeout for the integration tests Deployment to
// appear and report an outcome. It returns true only for a passed run.
func (c *Converger) WaitTests(ctx context.Context, logger logr.Logger, timeout time.Duration) (bool, error) {
	logger.Info("Waiting for integration tests result")
	outcome := kube.TestsRunning
	err := poll.Until(ctx, poll.Within(timeout, c.timings.TestPollInterval), func(ctx context.Context) (bool, error) {
		dep, err := c.cluster.GetDeployment(ctx, constants.TestDeploymentName)
		if err != nil {
			return false, err
		}
		if dep == nil {
			return false, nil
		}
		outcome = kube.IntegrationTestsOutcome(dep)
		return outcome != kube.TestsRunning, nil
	})
	if err != nil && !errors.Is(err, poll.ErrExhausted) {
		return false, err
	}
	logger.Info("Integration tests finished", "outcome", outcome.String())
	return outcome == kube.TestsPassed, nil
}
