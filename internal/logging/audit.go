// Package logging holds structured audit logging for operator actions that
// change credentials, roles or data of a RabbitMQ cluster.
package logging

import (
	"sort"

	"github.com/go-logr/logr"
)

// Audit event types.
const (
	EventCredentialRotation = "credential_rotation"
	EventUserDeactivation   = "user_deactivation"
	EventSwitchover         = "disaster_recovery_switchover"
	EventResourceCleanup    = "resource_cleanup"
	EventForcedRecreate     = "statefulset_recreate"
	EventPodReboot          = "pod_reboot"
	EventShovelRestart      = "shovel_plugin_restart"
)

// LogAuditEvent logs a structured audit event tagged with "audit=true" and
// the event type. Fields are emitted in key order.
func LogAuditEvent(logger logr.Logger, eventType string, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 4+2*len(keys))
	kv = append(kv, "audit", "true", "event_type", eventType)
	for _, key := range keys {
		kv = append(kv, key, fields[key])
	}
	logger.WithValues(kv...).Info("Operator audit event")
}
