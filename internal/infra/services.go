package infra

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
)

func servicePort(name string, port, nodePort int32) corev1.ServicePort {
	return corev1.ServicePort{
		Name:       name,
		Port:       port,
		Protocol:   corev1.ProtocolTCP,
		TargetPort: intOrStringPort(port),
		NodePort:   nodePort,
	}
}

func newService(namespace, name string, labels map[string]string, spec corev1.ServiceSpec) *corev1.Service {
	return &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec:       spec,
	}
}

// buildLocalService returns the per-StatefulSet service. Storage-class mode
// uses one headless service named after the StatefulSet; hostpath mode uses a
// regular service named "<statefulset>-0" per node.
func buildLocalService(spec *rabbitmqv2.RabbitMQServiceSpec, namespace, statefulSetName string) *corev1.Service {
	var ports []corev1.ServicePort
	for _, port := range rabbitMQContainerPorts {
		ports = append(ports, servicePort(fmt.Sprintf("%d-tcp-local", port), port, 0))
	}
	svcSpec := corev1.ServiceSpec{
		Ports:    ports,
		Selector: map[string]string{constants.LabelDeploymentConfig: statefulSetName},
	}
	name := statefulSetName
	if spec.RabbitMQ.HostpathConfiguration {
		name = statefulSetName + constants.HostpathPodNameSuffix
	} else {
		svcSpec.ClusterIP = corev1.ClusterIPNone
	}
	return newService(namespace, name, rabbitMQServiceLabels(spec, statefulSetName), svcSpec)
}

func buildExternalService(spec *rabbitmqv2.RabbitMQServiceSpec, namespace string) *corev1.Service {
	rmq := &spec.RabbitMQ
	var ports []corev1.ServicePort
	if rmq.IsNonencryptedAccess() {
		ports = append(ports,
			servicePort("5672-tcp", constants.PortAMQP, 0),
			servicePort("15672-tcp", constants.PortManagement, 0))
	}
	ports = append(ports, servicePort("15692-tcp", constants.PortPrometheus, 0))
	if rmq.SSLEnabled {
		ports = append(ports,
			servicePort("5671-tcp", constants.PortAMQPTLS, 0),
			servicePort("15671-tcp", constants.PortManagementTLS, 0))
	}
	return newService(namespace, constants.ExternalServiceName, rabbitMQServiceLabels(spec, ""), corev1.ServiceSpec{
		Ports:    ports,
		Selector: map[string]string{constants.LabelApp: constants.LabelValueRMQLocal},
	})
}

func buildNodePortService(spec *rabbitmqv2.RabbitMQServiceSpec, namespace string) *corev1.Service {
	np := spec.RabbitMQ.NodePortService
	var ports []corev1.ServicePort
	if spec.RabbitMQ.SSLEnabled {
		ports = []corev1.ServicePort{
			servicePort("15671-tcp", constants.PortManagementTLS, np.MgmtNodePort),
			servicePort("5671-tcp", constants.PortAMQPTLS, np.AMQPNodePort),
		}
	} else {
		ports = []corev1.ServicePort{
			servicePort("15672-tcp", constants.PortManagement, np.MgmtNodePort),
			servicePort("5672-tcp", constants.PortAMQP, np.AMQPNodePort),
		}
	}
	return newService(namespace, constants.NodePortServiceName, rabbitMQServiceLabels(spec, ""), corev1.ServiceSpec{
		Type:                  corev1.ServiceTypeNodePort,
		ExternalTrafficPolicy: corev1.ServiceExternalTrafficPolicyCluster,
		Ports:                 ports,
		Selector:              map[string]string{constants.LabelApp: constants.LabelValueRMQLocal},
	})
}
