package infra

import (
	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

// MergeLabels combines label (or annotation) maps with precedence
// own > custom > global. It always returns a fresh map.
func MergeLabels(global, custom, own map[string]string) map[string]string {
	out := make(map[string]string, len(global)+len(custom)+len(own))
	for k, v := range global {
		out[k] = v
	}
	for k, v := range custom {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func defaultLabels(spec *rabbitmqv2.RabbitMQServiceSpec) map[string]string {
	if spec.Global == nil {
		return nil
	}
	return spec.Global.DefaultLabels
}

func globalCustomLabels(spec *rabbitmqv2.RabbitMQServiceSpec) map[string]string {
	if spec.Global == nil {
		return nil
	}
	return spec.Global.CustomLabels
}

// objectLabels returns the metadata labels of a managed object: the global
// default labels overlaid with the object's fixed labels.
func objectLabels(spec *rabbitmqv2.RabbitMQServiceSpec, fixed map[string]string) map[string]string {
	return MergeLabels(defaultLabels(spec), nil, fixed)
}

// podLabels returns pod template labels for a workload with the given custom labels.
func podLabels(spec *rabbitmqv2.RabbitMQServiceSpec, custom, fixed map[string]string) map[string]string {
	return MergeLabels(globalCustomLabels(spec), custom, objectLabels(spec, fixed))
}

func rabbitMQServiceLabels(spec *rabbitmqv2.RabbitMQServiceSpec, rabbitmqApp string) map[string]string {
	fixed := map[string]string{
		constants.LabelApp:     constants.LabelValueRMQLocal,
		constants.LabelName:    constants.LabelValueRabbitMQ,
		constants.LabelAppName: constants.LabelValueRabbitMQ,
	}
	if rabbitmqApp != "" {
		fixed[constants.LabelRabbitMQApp] = rabbitmqApp
	}
	return objectLabels(spec, fixed)
}

func rabbitMQSelector(name string) map[string]string {
	return map[string]string{
		constants.LabelApp:              constants.LabelValueRMQLocal,
		constants.LabelDeploymentConfig: name,
	}
}
