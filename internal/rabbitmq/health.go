package rabbitmq

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentShovelChecks bounds parallel shovel lookups.
const maxConcurrentShovelChecks = 8

// ShovelReport summarises a shovel health check.
type ShovelReport struct {
	Total   int
	Running int
	Invalid []string
	Healthy bool
}

// CheckShovels evaluates shovel health. No shovels is healthy. Any shovel
// that cannot be read back makes the cluster unhealthy; otherwise the share
// of running shovels must reach aliveRatio. A failed listing counts as no
// shovels.
func (c *Client) CheckShovels(ctx context.Context, logger logr.Logger, aliveRatio float64) ShovelReport {
	shovels, err := c.Shovels(ctx)
	if err != nil {
		logger.Info("Shovel list is not ready yet", "error", err.Error())
		shovels = nil
	}
	report := ShovelReport{Total: len(shovels)}
	if len(shovels) == 0 {
		logger.Info("No shovels found, skipping shovel health check")
		report.Healthy = true
		return report
	}

	valid := make([]bool, len(shovels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentShovelChecks)
	for i := range shovels {
		g.Go(func() error {
			ok, err := c.ShovelExists(gctx, shovels[i].VHost, shovels[i].Name)
			if err != nil {
				logger.Info("Shovel info is not ready yet", "shovel", shovels[i].Name, "vhost", shovels[i].VHost, "error", err.Error())
			}
			valid[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	for i, s := range shovels {
		if !valid[i] {
			report.Invalid = append(report.Invalid, s.VHost+"/"+s.Name)
			continue
		}
		if s.State == ShovelStateRunning {
			report.Running++
		}
	}
	if len(report.Invalid) > 0 {
		logger.Info("Some shovels are not valid", "shovels", report.Invalid)
		return report
	}
	report.Healthy = float64(report.Running)/float64(report.Total) >= aliveRatio
	return report
}
