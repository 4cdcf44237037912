// Package status maintains the RabbitMQService condition log and
// disaster-recovery status.
package status

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// Begin opens a pass by appending an "In progress" entry. A trailing
// "In progress" entry left by an interrupted pass is reused.
func Begin(st *rabbitmqv2.RabbitMQServiceStatus, message string, now metav1.Time) {
	entry := rabbitmqv2.ServiceCondition{
		Type:      rabbitmqv2.ConditionInProgress,
		Status:    constants.ConditionStatusTrue,
		Message:   message,
		Error:     constants.ConditionErrorNone,
		Timestamp: now,
	}
	if last := Last(st.Conditions); last != nil && last.Type == rabbitmqv2.ConditionInProgress {
		st.Conditions[len(st.Conditions)-1] = entry
		return
	}
	st.Conditions = append(st.Conditions, entry)
}

// Complete closes a pass with a terminal entry, replacing the trailing
// "In progress" entry when there is one.
func Complete(st *rabbitmqv2.RabbitMQServiceStatus, conditionType rabbitmqv2.ConditionType, message string, now metav1.Time) {
	entry := rabbitmqv2.ServiceCondition{
		Type:      conditionType,
		Status:    constants.ConditionStatusTrue,
		Message:   message,
		Error:     constants.ConditionErrorNone,
		Timestamp: now,
	}
	if conditionType == rabbitmqv2.ConditionFailed {
		entry.Error = constants.ConditionErrorSet
	}
	if last := Last(st.Conditions); last != nil && last.Type == rabbitmqv2.ConditionInProgress {
		st.Conditions[len(st.Conditions)-1] = entry
		return
	}
	st.Conditions = append(st.Conditions, entry)
}

// Succeed closes a pass as Successful.
func Succeed(st *rabbitmqv2.RabbitMQServiceStatus, message string, now metav1.Time) {
	Complete(st, rabbitmqv2.ConditionSuccessful, message, now)
}

// Fail closes a pass as Failed.
func Fail(st *rabbitmqv2.RabbitMQServiceStatus, message string, now metav1.Time) {
	Complete(st, rabbitmqv2.ConditionFailed, message, now)
}

// Last returns the most recent condition, or nil.
func Last(conditions []rabbitmqv2.ServiceCondition) *rabbitmqv2.ServiceCondition {
	if len(conditions) == 0 {
		return nil
	}
	return &conditions[len(conditions)-1]
}

// IsTerminal reports whether t closes a pass.
func IsTerminal(t rabbitmqv2.ConditionType) bool {
	return t == rabbitmqv2.ConditionSuccessful || t == rabbitmqv2.ConditionFailed
}

// IsInProgress reports whether a pass is currently open.
func IsInProgress(st *rabbitmqv2.RabbitMQServiceStatus) bool {
	last := Last(st.Conditions)
	return last != nil && last.Type == rabbitmqv2.ConditionInProgress
}

// SetDisasterRecovery overwrites the disaster-recovery status in place.
func SetDisasterRecovery(st *rabbitmqv2.RabbitMQServiceStatus, mode rabbitmqv2.DisasterRecoveryMode, state rabbitmqv2.SwitchoverState, message string) {
	st.DisasterRecoveryStatus = &rabbitmqv2.DisasterRecoveryStatus{
		Mode:    mode,
		Status:  state,
		Message: message,
	}
}
