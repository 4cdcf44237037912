package kube

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
)

// Credentials are the RabbitMQ administrator credentials and Erlang cookie
// held in the default secret.
type Credentials struct {
	User     string
	Password string
	Cookie   string
}

// ReadSecret returns the data of the named Secret. A missing Secret is
// reported as a missing prerequisite.
func (s *StateClient) ReadSecret(ctx context.Context, name string) (map[string][]byte, error) {
	secret := &corev1.Secret{}
	if err := s.reader.Get(ctx, s.key(name), secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("secret %s/%s: %w", s.namespace, name, operatorerrors.ErrPermanentPrerequisitesMissing)
		}
		return nil, classify(err, "failed to get Secret %s/%s", s.namespace, name)
	}
	return secret.Data, nil
}

// ReadCredentials loads the administrator credentials from the default
// secret. Both user and password are required.
func (s *StateClient) ReadCredentials(ctx context.Context) (Credentials, error) {
	data, err := s.ReadSecret(ctx, constants.DefaultSecretName)
	if err != nil {
		if errors.Is(err, operatorerrors.ErrPermanentPrerequisitesMissing) {
			return Credentials{}, operatorerrors.NewPrerequisitesMissing(constants.MessageSecretMissing)
		}
		return Credentials{}, err
	}

	creds := Credentials{
		User:     string(data[constants.SecretKeyUser]),
		Password: string(data[constants.SecretKeyPassword]),
		Cookie:   string(data[constants.SecretKeyCookie]),
	}
	if creds.User == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("secret %s/%s must contain both %s and %s: %w",
			s.namespace, constants.DefaultSecretName, constants.SecretKeyUser, constants.SecretKeyPassword,
			operatorerrors.ErrPermanentConfig)
	}
	return creds, nil
}
