// Package credentials applies changes of the RabbitMQ default secret to a
// running cluster: a renamed user is deleted, a changed password is set, and
// every broker and backup daemon pod is restarted to pick up the new values.
package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/infra"
	"github.com/netcracker/rabbitmq-operator/internal/kube"
	"github.com/netcracker/rabbitmq-operator/internal/logging"
)

// Cluster is the orchestration surface used by a rotation.
type Cluster interface {
	ExecInPod(ctx context.Context, pod string, command []string) (string, error)
	ListPods(ctx context.Context, selector map[string]string) ([]corev1.Pod, error)
	DeletePod(ctx context.Context, name string, opts ...client.DeleteOption) error
}

// Rebooter restarts RabbitMQ pods one at a time with a membership check after each.
type Rebooter interface {
	RebootAll(ctx context.Context, logger logr.Logger, replicas int) error
}

// Change is a detected difference between the recorded baseline and the secret.
type Change struct {
	OldUser  string
	User     string
	Password string
}

// UserRenamed reports whether the change replaces the user rather than its password.
func (c Change) UserRenamed() bool {
	return c.OldUser != "" && c.OldUser != c.User
}

// Fingerprint digests a password for the status baseline.
func Fingerprint(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Baseline is the status record of creds.
func Baseline(creds kube.Credentials) *rabbitmqv2.CredentialsStatus {
	return &rabbitmqv2.CredentialsStatus{User: creds.User, Fingerprint: Fingerprint(creds.Password)}
}

// Detect compares creds with the recorded baseline. It reports no change when
// the baseline is missing; the caller records one instead.
func Detect(baseline *rabbitmqv2.CredentialsStatus, creds kube.Credentials) (Change, bool) {
	if baseline == nil {
		return Change{}, false
	}
	if baseline.User == creds.User && baseline.Fingerprint == Fingerprint(creds.Password) {
		return Change{}, false
	}
	return Change{OldUser: baseline.User, User: creds.User, Password: creds.Password}, true
}

// Rotator applies a credential change.
type Rotator struct {
	cluster  Cluster
	rebooter Rebooter
}

// NewRotator returns a Rotator.
func NewRotator(cluster Cluster, rebooter Rebooter) *Rotator {
	return &Rotator{cluster: cluster, rebooter: rebooter}
}

// Rotate deletes the old user when the username changed, otherwise changes
// the password, then restarts every RabbitMQ pod and the backup daemon pods.
func (r *Rotator) Rotate(ctx context.Context, logger logr.Logger, hostpath bool, replicas int, change Change) error {
	pod := infra.PrimaryPodName(hostpath)

	if change.UserRenamed() {
		logger.Info("Deactivating old user", "user", change.OldUser)
		if _, err := r.cluster.ExecInPod(ctx, pod, []string{"rabbitmqctl", "delete_user", change.OldUser}); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", change.OldUser, err)
		}
		logging.LogAuditEvent(logger, logging.EventUserDeactivation, map[string]string{
			"user": change.OldUser,
			"pod":  pod,
		})
	} else {
		logger.Info("Changing password", "user", change.User)
		out, err := r.cluster.ExecInPod(ctx, pod, []string{"rabbitmqctl", "change_password", change.User, change.Password})
		if err != nil {
			return fmt.Errorf("failed to change password of user %s: %w", change.User, err)
		}
		if strings.Contains(out, "does not exist") {
			logger.V(1).Info("Password was not changed, the user does not exist", "user", change.User)
		}
		logging.LogAuditEvent(logger, logging.EventCredentialRotation, map[string]string{
			"user": change.User,
			"pod":  pod,
		})
	}

	logger.Info("Rebooting RabbitMQ pods")
	if err := r.rebooter.RebootAll(ctx, logger, replicas); err != nil {
		return err
	}
	if err := r.rebootBackupDaemon(ctx, logger); err != nil {
		return err
	}
	logger.Info("All pods have been rebooted, changing credentials completed")
	return nil
}

func (r *Rotator) rebootBackupDaemon(ctx context.Context, logger logr.Logger) error {
	pods, err := r.cluster.ListPods(ctx, nil)
	if err != nil {
		return err
	}
	for i := range pods {
		name := pods[i].Name
		if !strings.Contains(name, constants.BackupDaemonName) {
			continue
		}
		if err := r.cluster.DeletePod(ctx, name); err != nil {
			return err
		}
		logger.Info("Backup daemon pod rebooted", "pod", name)
	}
	return nil
}
