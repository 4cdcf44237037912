package kube

import (
	appsv1 "k8s.io/api/apps/v1"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// TestsOutcome is the verdict published by the integration tests Deployment.
type TestsOutcome int

const (
	// TestsRunning means no verdict has been published yet.
	TestsRunning TestsOutcome = iota
	TestsPassed
	TestsFailed
)

// IntegrationTestsOutcome inspects the Deployment conditions for the verdict
// reported under the integration tests execution reason.
func IntegrationTestsOutcome(dep *appsv1.Deployment) TestsOutcome {
	if dep == nil {
		return TestsRunning
	}
	for _, cond := range dep.Status.Conditions {
		if cond.Reason != constants.TestConditionReason {
			continue
		}
		switch string(cond.Type) {
		case "Ready":
			return TestsPassed
		case "Failed":
			return TestsFailed
		}
	}
	return TestsRunning
}

func (o TestsOutcome) String() string {
	switch o {
	case TestsPassed:
		return "passed"
	case TestsFailed:
		return "failed"
	default:
		return "running"
	}
}
