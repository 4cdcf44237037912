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

package rabbitmqservice

import (
	"context"
	"fmt"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/backupdaemon"
	"github.com/netcracker/rabbitmq-operator/internal/config"
	"github.com/netcracker/rabbitmq-operator/internal/convergence"
	"github.com/netcracker/rabbitmq-operator/internal/disasterrecovery"
	"github.com/netcracker/rabbitmq-operator/internal/httpapi"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/rabbitmq"
	"github.com/netcracker/rabbitmq-operator/internal/shovel"
)

// ManagementAPI is the part of the RabbitMQ management API the controllers use.
type ManagementAPI interface {
	convergence.Membership
	shovel.Checker
}

// BackupDaemonAPI is the part of the backup daemon API the controllers use.
type BackupDaemonAPI interface {
	disasterrecovery.Daemon
	convergence.HealthWaiter
}

// ServiceClients builds HTTP clients for the services a RabbitMQService runs.
// Clients are built per use so rotated credentials are picked up.
type ServiceClients interface {
	Management(ctx context.Context, service *rabbitmqv2.RabbitMQService) (ManagementAPI, error)
	BackupDaemon(ctx context.Context) (BackupDaemonAPI, error)
}

// ClientFactory is the production ServiceClients.
type ClientFactory struct {
	State  *kube.StateClient
	Config *config.OperatorConfig
}

var _ ServiceClients = (*ClientFactory)(nil)

// Management returns a management API client authenticated with the default secret.
func (f *ClientFactory) Management(ctx context.Context, service *rabbitmqv2.RabbitMQService) (ManagementAPI, error) {
	creds, err := f.State.ReadCredentials(ctx)
	if err != nil {
		return nil, err
	}

	tls := service.Spec.RabbitMQ.SSLEnabled
	var caCert []byte
	if tls {
		caCert, err = httpapi.ReadCACert(f.Config.ManagementCACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read management CA certificate: %w", err)
		}
	}

	mgmt, err := rabbitmq.NewClient(rabbitmq.Config{
		Namespace: service.Namespace,
		TLS:       tls,
		CACert:    caCert,
		Username:  creds.User,
		Password:  creds.Password,
	})
	if err != nil {
		return nil, err
	}
	return mgmt, nil
}

// BackupDaemon returns a backup daemon client. HTTPS is used when the daemon
// CA certificate is mounted.
func (f *ClientFactory) BackupDaemon(ctx context.Context) (BackupDaemonAPI, error) {
	caCert, err := httpapi.ReadCACert(f.Config.BackupDaemonCACertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup daemon CA certificate: %w", err)
	}
	daemon, err := backupdaemon.NewClient(backupdaemon.Config{
		Namespace: f.State.Namespace(),
		CACert:    caCert,
		BaseURL:   f.Config.BackupDaemonURL,
	})
	if err != nil {
		return nil, err
	}
	return daemon, nil
}

// ShovelChecker adapts Management to shovel.CheckerFactory.
func (f *ClientFactory) ShovelChecker(ctx context.Context, service *rabbitmqv2.RabbitMQService) (shovel.Checker, error) {
	mgmt, err := f.Management(ctx, service)
	if err != nil {
		return nil, err
	}
	return mgmt, nil
}
