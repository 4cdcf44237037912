/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

const metricsNamespace = "rabbitmq_operator"

var (
	reconcileDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation loops in seconds",
			// Passes include readiness and membership waits of several minutes.
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"namespace", "name", "controller"},
	)

	reconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_errors_total",
			Help:      "Total number of reconciliation errors",
		},
		[]string{"namespace", "name", "controller", "reason"},
	)

	serviceConditionGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "service_condition",
			Help:      "Latest condition of a RabbitMQService (1 = current condition)",
		},
		[]string{"namespace", "name", "condition"},
	)

	switchoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "switchover_total",
			Help:      "Total number of disaster recovery switchovers by target mode and result",
		},
		[]string{"namespace", "name", "mode", "result"},
	)

	switchoverDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "switchover_duration_seconds",
			Help:      "Duration of disaster recovery switchovers in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"namespace", "name", "mode"},
	)

	credentialRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credential_rotations_total",
			Help:      "Total number of credential rotations by result",
		},
		[]string{"namespace", "name", "result"},
	)

	shovelsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "shovels",
			Help:      "Number of shovels seen by the last shovel health check",
		},
		[]string{"namespace", "name", "state"},
	)

	shovelRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "shovel_plugin_restarts_total",
			Help:      "Total number of shovel plugin restarts by result",
		},
		[]string{"namespace", "name", "result"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		reconcileDurationHistogram,
		reconcileErrorsTotal,
		serviceConditionGauge,
		switchoverTotal,
		switchoverDurationHistogram,
		credentialRotationsTotal,
		shovelsGauge,
		shovelRestartsTotal,
	)
}

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// ReconcileMetrics records reconcile-level metrics for one controller and
// RabbitMQService.
type ReconcileMetrics struct {
	namespace  string
	name       string
	controller string
}

// NewReconcileMetrics creates a new ReconcileMetrics instance.
func NewReconcileMetrics(namespace, name, controller string) *ReconcileMetrics {
	return &ReconcileMetrics{
		namespace:  namespace,
		name:       name,
		controller: controller,
	}
}

// ObserveDuration records the duration of a reconcile loop in seconds.
func (m *ReconcileMetrics) ObserveDuration(durationSeconds float64) {
	reconcileDurationHistogram.
		WithLabelValues(m.namespace, m.name, m.controller).
		Observe(durationSeconds)
}

// IncrementError increments the reconcile error counter with the given reason.
// Reason values should be low-cardinality strings (for example, "Validation").
func (m *ReconcileMetrics) IncrementError(reason string) {
	reconcileErrorsTotal.
		WithLabelValues(m.namespace, m.name, m.controller, reason).
		Inc()
}

// ServiceMetrics records per-service state metrics.
type ServiceMetrics struct {
	namespace string
	name      string
}

// NewServiceMetrics creates a new ServiceMetrics instance.
func NewServiceMetrics(namespace, name string) *ServiceMetrics {
	return &ServiceMetrics{namespace: namespace, name: name}
}

var allConditions = []rabbitmqv2.ConditionType{
	rabbitmqv2.ConditionInProgress,
	rabbitmqv2.ConditionSuccessful,
	rabbitmqv2.ConditionFailed,
}

// SetCondition marks condition as current and clears the others.
func (m *ServiceMetrics) SetCondition(condition rabbitmqv2.ConditionType) {
	for _, c := range allConditions {
		value := 0.0
		if c == condition {
			value = 1.0
		}
		serviceConditionGauge.WithLabelValues(m.namespace, m.name, string(c)).Set(value)
	}
}

// RecordSwitchover counts a finished switchover and its duration.
func (m *ServiceMetrics) RecordSwitchover(mode rabbitmqv2.DisasterRecoveryMode, ok bool, durationSeconds float64) {
	switchoverTotal.WithLabelValues(m.namespace, m.name, string(mode), result(ok)).Inc()
	switchoverDurationHistogram.WithLabelValues(m.namespace, m.name, string(mode)).Observe(durationSeconds)
}

// RecordCredentialRotation counts a finished credential rotation.
func (m *ServiceMetrics) RecordCredentialRotation(ok bool) {
	credentialRotationsTotal.WithLabelValues(m.namespace, m.name, result(ok)).Inc()
}

// SetShovels records the shovel counts of the last health check.
func (m *ServiceMetrics) SetShovels(total, running, invalid int) {
	shovelsGauge.WithLabelValues(m.namespace, m.name, "total").Set(float64(total))
	shovelsGauge.WithLabelValues(m.namespace, m.name, "running").Set(float64(running))
	shovelsGauge.WithLabelValues(m.namespace, m.name, "invalid").Set(float64(invalid))
}

// RecordShovelRestart counts a shovel plugin restart attempt across the cluster.
func (m *ServiceMetrics) RecordShovelRestart(ok bool) {
	shovelRestartsTotal.WithLabelValues(m.namespace, m.name, result(ok)).Inc()
}

// Clear removes the per-service gauges. Called when the service is finalized.
func (m *ServiceMetrics) Clear() {
	for _, c := range allConditions {
		serviceConditionGauge.DeleteLabelValues(m.namespace, m.name, string(c))
	}
	for _, state := range []string{"total", "running", "invalid"} {
		shovelsGauge.DeleteLabelValues(m.namespace, m.name, state)
	}
}
