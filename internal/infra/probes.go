package infra

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

const hostpathLivenessScript = `
rabbitmq-diagnostics -q check_running && rabbitmq-diagnostics -q check_local_alarms || exit 1

if [[ "$HOSTNAME" != "rmqlocal-0-0" ]] && [[ ! -f /var/lib/rabbitmq/started_at_least_once ]] ; then
    FD_OUTPUT="/proc/1/fd/1"
    CLUSTER_STATE="$(rabbitmqctl cluster_status | grep -c rmqlocal-0-0)"
    echo "Cluster state: ${CLUSTER_STATE}" &> "${FD_OUTPUT}"

    if [[ "${CLUSTER_STATE}" -gt 0 ]];
    then
        echo "Current node ${HOSTNAME} joined with the zero node" &> "${FD_OUTPUT}"
        touch /var/lib/rabbitmq/started_at_least_once
        exit 0
    fi

    echo "Try to join with zero node" &> "${FD_OUTPUT}"

    rabbitmqctl stop_app &> "${FD_OUTPUT}"
    rabbitmqctl join_cluster rabbit@rmqlocal-0-0 &> "${FD_OUTPUT}"
    rabbitmqctl start_app &> "${FD_OUTPUT}"

    echo "Current node ${HOSTNAME} joined with the zero node" &> "${FD_OUTPUT}"
    exit 1
fi
`

const storageClassLivenessScript = `
if [ -f /var/lib/rabbitmq/started_at_least_once ]; then
    echo "executing complete version of rabbitmq status check"
    if rabbitmq-diagnostics -q check_running && rabbitmq-diagnostics -q check_local_alarms ; then
        :
    else
        echo "http-liveness probe failed"
        exit 1
    fi
elif rabbitmqctl await_online_nodes $(( ( $(echo -n ${MY_POD_NAME##*-}) + 1 ) / 2 + 1 )) -t 1 ; then
    echo "awaiting nodes succeeded"
else echo "awaiting nodes liveness probe failed"
    exit 1
fi
`

const storageClassReadinessScript = `
if [ -f /var/lib/rabbitmq/started_at_least_once ]; then
    echo "executing rabbitmq-diagnostics ping -q"
    rabbitmq-diagnostics ping -q;
elif rabbitmqctl await_online_nodes $(( ( $(echo -n ${MY_POD_NAME##*-}) + 1 ) / 2 + 1 )) -t 1 ; then
    echo "awaiting nodes succeeded"
    touch /var/lib/rabbitmq/started_at_least_once
else
    echo "probe failed"
    exit 1
fi
`

const preStopScript = `
rabbitmqctl stop;
if [ ! -f /var/lib/rabbitmq/started_at_least_once ]; then
    rm -r /var/lib/rabbitmq/*
fi
`

// probeDefaults are the built-in thresholds of a probe kind.
type probeDefaults struct {
	failure, delay, period, success, timeout int32
}

var (
	readinessDefaults = probeDefaults{failure: 90, delay: 10, period: 10, success: 1, timeout: 5}
	livenessDefaults  = probeDefaults{failure: 30, delay: 10, period: 30, success: 1, timeout: 15}
)

// overrideReadinessTimeout applies when a readiness override omits timeout_seconds.
const overrideReadinessTimeout int32 = 15

func probeCommand(hostpath, liveness bool) []string {
	switch {
	case hostpath && liveness:
		return []string{"bin/bash", "-c", hostpathLivenessScript}
	case hostpath:
		return []string{"rabbitmq-diagnostics", "ping", "-q"}
	case liveness:
		return []string{"bin/bash", "-c", storageClassLivenessScript}
	default:
		return []string{"bin/bash", "-c", storageClassReadinessScript}
	}
}

func livenessProbe(rmq *rabbitmqv2.RabbitMQSpec) *corev1.Probe {
	return buildProbe(probeCommand(rmq.HostpathConfiguration, true), livenessDefaults, rmq.LivenessProbe, livenessDefaults.timeout)
}

func readinessProbe(rmq *rabbitmqv2.RabbitMQSpec) *corev1.Probe {
	return buildProbe(probeCommand(rmq.HostpathConfiguration, false), readinessDefaults, rmq.ReadinessProbe, overrideReadinessTimeout)
}

// buildProbe returns the built-in probe, or one whose fields individually
// default to the built-ins when an override is present.
func buildProbe(command []string, d probeDefaults, override *rabbitmqv2.ProbeOverride, overrideTimeout int32) *corev1.Probe {
	probe := &corev1.Probe{
		ProbeHandler:        corev1.ProbeHandler{Exec: &corev1.ExecAction{Command: command}},
		FailureThreshold:    d.failure,
		InitialDelaySeconds: d.delay,
		PeriodSeconds:       d.period,
		SuccessThreshold:    d.success,
		TimeoutSeconds:      d.timeout,
	}
	if override == nil {
		return probe
	}
	probe.FailureThreshold = ptr.Deref(override.FailureThreshold, d.failure)
	probe.InitialDelaySeconds = ptr.Deref(override.InitialDelaySeconds, d.delay)
	probe.PeriodSeconds = ptr.Deref(override.PeriodSeconds, d.period)
	probe.SuccessThreshold = ptr.Deref(override.SuccessThreshold, d.success)
	probe.TimeoutSeconds = ptr.Deref(override.TimeoutSeconds, overrideTimeout)
	return probe
}

func telegrafProbe() *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			TCPSocket: &corev1.TCPSocketAction{Port: intOrStringPort(telegrafPort)},
		},
		InitialDelaySeconds: 30,
		TimeoutSeconds:      5,
		PeriodSeconds:       15,
		SuccessThreshold:    1,
		FailureThreshold:    20,
	}
}
