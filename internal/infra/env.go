package infra

import (
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

func fieldEnv(name, path string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			FieldRef: &corev1.ObjectFieldSelector{FieldPath: path},
		},
	}
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// pythonBool renders a boolean the way the RabbitMQ image entrypoint compares it.
func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// rabbitMQEnv assembles the container environment of StatefulSet name: the
// fixed variables, then user entries, then IPv6 and LDAP extras.
func rabbitMQEnv(logger logr.Logger, rmq *rabbitmqv2.RabbitMQSpec, name string) []corev1.EnvVar {
	useLongName := "true"
	nodeName := "rabbit@$(MY_POD_NAME).$(BROKER_NAME_INTERNAL).$(MY_POD_NAMESPACE).svc.cluster.local"
	if rmq.HostpathConfiguration {
		useLongName = "false"
		nodeName = "rabbit@$(BROKER_NAME_INTERNAL)-0"
	}

	env := []corev1.EnvVar{
		{Name: constants.EnvBrokerNameInternal, Value: name},
		{Name: "AUTOCLUSTER_DELAY", Value: "2000"},
		fieldEnv("MY_NODE_NAME", "spec.nodeName"),
		fieldEnv(constants.EnvMyPodName, "metadata.name"),
		fieldEnv(constants.EnvMyPodNamespace, "metadata.namespace"),
		fieldEnv("MY_POD_IP", "status.podIP"),
		fieldEnv("MY_POD_SERVICE_ACCOUNT", "spec.serviceAccountName"),
		{Name: "RABBITMQ_USE_LONGNAME", Value: useLongName},
		{Name: "RABBITMQ_NODENAME", Value: nodeName},
		{Name: "K8S_HOSTNAME_SUFFIX", Value: "." + name + ".$(MY_POD_NAMESPACE).svc.cluster.local"},
		{Name: "K8S_SERVICE_NAME", Value: name},
		{Name: "CLEANUP_WARN_ONLY", Value: "true"},
		{Name: "AUTOCLUSTER_CLEANUP", Value: "false"},
		secretEnv("RABBITMQ_DEFAULT_USER", constants.DefaultSecretName, constants.SecretKeyUser),
		secretEnv("RABBITMQ_DEFAULT_PASS", constants.DefaultSecretName, constants.SecretKeyPassword),
		secretEnv("RABBITMQ_COOKIE", constants.DefaultSecretName, constants.SecretKeyCookie),
		{Name: "RABBITMQ_ENABLE_IPV6", Value: pythonBool(rmq.IPv6Enabled)},
	}

	env = append(env, UserEnv(logger, rmq.EnvironmentVariables)...)

	if rmq.IPv6Enabled {
		env = append(env,
			corev1.EnvVar{Name: "RABBITMQ_SERVER_ADDITIONAL_ERL_ARGS", Value: "-kernel inetrc '/etc/rabbitmq/erl_inetrc' -proto_dist inet6_tcp"},
			corev1.EnvVar{Name: "RABBITMQ_CTL_ERL_ARGS", Value: "-proto_dist inet6_tcp"},
		)
	}
	if rmq.LDAPEnabled {
		env = append(env,
			secretEnv("LDAP_ADMIN_USER", constants.LDAPSecretName, "LDAP_ADMIN_USER"),
			secretEnv("LDAP_ADMIN_PASSWORD", constants.LDAPSecretName, "LDAP_ADMIN_PASSWORD"),
		)
	}
	return env
}

// UserEnv parses "NAME=value" entries. Entries must contain exactly one '='.
// Names and values are trimmed; a later duplicate overwrites the earlier value
// in place, so output order is order of first appearance. Malformed entries
// are logged and skipped.
func UserEnv(logger logr.Logger, entries []string) []corev1.EnvVar {
	var out []corev1.EnvVar
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, "=")
		if len(parts) != 2 {
			logger.Info("Ignoring malformed environment variable", "entry", entry)
			continue
		}
		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if i, ok := index[name]; ok {
			out[i].Value = value
			continue
		}
		index[name] = len(out)
		out = append(out, corev1.EnvVar{Name: name, Value: value})
	}
	return out
}

func telegrafEnv() []corev1.EnvVar {
	return []corev1.EnvVar{
		secretEnv("INFLUXDB_DEBUG", constants.MonitoringSecretName, "influxdb-debug"),
		secretEnv("METRIC_COLLECTION_INTERVAL", constants.MonitoringSecretName, "metric-collection-interval"),
		secretEnv("INFLUXDB_URL", constants.MonitoringSecretName, "influxdb-url"),
		secretEnv("INFLUXDB_DATABASE", constants.MonitoringSecretName, "influxdb-database"),
		secretEnv("INFLUXDB_USER", constants.MonitoringSecretName, "influxdb-user"),
		secretEnv("INFLUXDB_PASSWORD", constants.MonitoringSecretName, "influxdb-password"),
		secretEnv("RABBITMQ_PASSWORD", constants.DefaultSecretName, constants.SecretKeyPassword),
		secretEnv("RABBITMQ_USER", constants.DefaultSecretName, constants.SecretKeyUser),
		{Name: "RABBITMQ_HOST", Value: constants.ExternalServiceName},
		fieldEnv("NAMESPACE", "metadata.namespace"),
	}
}
