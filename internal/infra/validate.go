package infra

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
)

// Validate rejects spec combinations the builder refuses to render. The
// returned error carries the message recorded in the Failed condition.
func Validate(spec *rabbitmqv2.RabbitMQServiceSpec) error {
	if spec == nil {
		return operatorerrors.NewValidation("spec is required")
	}
	rmq := &spec.RabbitMQ

	if rmq.IPv6Enabled && rmq.HostpathConfiguration {
		return operatorerrors.NewValidation(constants.MessageIPv6Hostpath)
	}
	if !rmq.HostpathConfiguration && (len(rmq.Nodes) > 0 || len(rmq.Volumes) > 0 || len(rmq.Selectors) > 0) {
		return operatorerrors.NewValidation(constants.MessageHostpathOnlyFields)
	}
	if rmq.Replicas == nil || *rmq.Replicas < 1 {
		return operatorerrors.NewValidation("rabbitmq.replicas must be at least 1")
	}
	if strings.TrimSpace(rmq.DockerImage) == "" {
		return operatorerrors.NewValidation("rabbitmq.dockerImage is required")
	}
	for _, key := range []corev1.ResourceName{corev1.ResourceCPU, corev1.ResourceMemory} {
		if _, ok := rmq.Resources.Limits[key]; !ok {
			return operatorerrors.NewValidation(fmt.Sprintf("rabbitmq.resources.limits.%s is required", key))
		}
		if _, ok := rmq.Resources.Requests[key]; !ok {
			return operatorerrors.NewValidation(fmt.Sprintf("rabbitmq.resources.requests.%s is required", key))
		}
	}
	if rmq.Resources.Storage == nil {
		return operatorerrors.NewValidation("rabbitmq.resources.storage is required")
	}

	if rmq.HostpathConfiguration {
		if err := validateHostpath(rmq); err != nil {
			return err
		}
	}

	if rmq.SSLEnabled && rmq.SSLSecretName == "" {
		return operatorerrors.NewValidation("rabbitmq.ssl_secret_name is required when ssl_enabled is set")
	}
	if spec.IsTelegrafEnabled() && strings.TrimSpace(spec.Telegraf.DockerImage) == "" {
		return operatorerrors.NewValidation("telegraf.dockerImage is required when telegraf.install is set")
	}
	return nil
}

func validateHostpath(rmq *rabbitmqv2.RabbitMQSpec) error {
	replicas := rmq.ReplicaCount()
	if len(rmq.Nodes) < replicas {
		return operatorerrors.NewValidation(fmt.Sprintf(
			"rabbitmq.nodes must list one node per replica: got %d nodes for %d replicas", len(rmq.Nodes), replicas))
	}
	if len(rmq.Selectors) == 0 && len(rmq.Volumes) < replicas {
		return operatorerrors.NewValidation(fmt.Sprintf(
			"rabbitmq.volumes or rabbitmq.selectors must cover every replica: got %d volumes for %d replicas", len(rmq.Volumes), replicas))
	}
	if len(rmq.Selectors) > 0 {
		if len(rmq.Selectors) < replicas {
			return operatorerrors.NewValidation(fmt.Sprintf(
				"rabbitmq.selectors must cover every replica: got %d selectors for %d replicas", len(rmq.Selectors), replicas))
		}
		for _, s := range rmq.Selectors {
			if _, _, err := parseSelector(s); err != nil {
				return operatorerrors.NewValidation(err.Error())
			}
		}
	}
	return nil
}

func parseSelector(s string) (string, string, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
		return "", "", fmt.Errorf("rabbitmq.selectors entry %q must have the form key=value", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
