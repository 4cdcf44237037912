package backupdaemon

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// WaitReady reads the daemon health under p until a payload is returned,
// then judges readiness from it. It returns false when no payload arrives
// within the budget.
func (c *Client) WaitReady(ctx context.Context, logger logr.Logger, p poll.Policy) (bool, error) {
	var health *Health
	err := poll.Until(ctx, p, func(ctx context.Context) (bool, error) {
		h, err := c.Health(ctx)
		if err != nil {
			logger.Info("Failed to read backup daemon health, retrying", "error", err.Error())
			return false, nil
		}
		health = h
		return true, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		logger.Info("Backup daemon health was not received")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.V(1).Info("Backup daemon health", "status", health.Status, "dumpCount", int(health.Storage.DumpCount))
	return health.Ready(), nil
}
