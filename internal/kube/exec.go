package kube

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/poll"
)

// ExecRequest describes a command executed in the first container of a pod.
type ExecRequest struct {
	Namespace string
	Pod       string
	Command   []string
	Stdin     io.Reader
	TTY       bool
}

// PodExecutor runs commands inside pods.
type PodExecutor interface {
	Exec(ctx context.Context, req ExecRequest) (stdout string, stderr string, err error)
}

// SPDYExecutor streams pod exec sessions over SPDY.
type SPDYExecutor struct {
	config    *rest.Config
	clientset kubernetes.Interface
}

// NewSPDYExecutor returns a PodExecutor using the given REST config.
func NewSPDYExecutor(cfg *rest.Config) (*SPDYExecutor, error) {
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset for pod exec: %w", err)
	}
	return &SPDYExecutor{config: cfg, clientset: clientset}, nil
}

// Exec implements PodExecutor.
func (e *SPDYExecutor) Exec(ctx context.Context, req ExecRequest) (string, string, error) {
	request := e.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(req.Namespace).
		Name(req.Pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Command: req.Command,
			Stdin:   req.Stdin != nil,
			Stdout:  true,
			Stderr:  !req.TTY,
			TTY:     req.TTY,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.config, "POST", request.URL())
	if err != nil {
		return "", "", fmt.Errorf("failed to create executor for pod %s: %w", req.Pod, err)
	}

	var stdout, stderr bytes.Buffer
	opts := remotecommand.StreamOptions{
		Stdin:  req.Stdin,
		Stdout: &stdout,
		Tty:    req.TTY,
	}
	if !req.TTY {
		opts.Stderr = &stderr
	}
	if err := executor.StreamWithContext(ctx, opts); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("exec in pod %s failed: %w", req.Pod, err)
	}
	return stdout.String(), stderr.String(), nil
}

// ExecInPod runs command in pod and returns its stdout.
func (s *StateClient) ExecInPod(ctx context.Context, pod string, command []string) (string, error) {
	if s.opts.Executor == nil {
		return "", fmt.Errorf("pod exec is not configured")
	}
	logger := log.FromContext(ctx).WithValues("pod", pod)

	stdout, stderr, err := s.opts.Executor.Exec(ctx, ExecRequest{
		Namespace: s.namespace,
		Pod:       pod,
		Command:   command,
	})
	if stderr != "" {
		logger.Info("Command wrote to stderr", "stderr", strings.TrimSpace(stderr))
	}
	if err != nil {
		return stdout, err
	}
	logger.V(1).Info("Command finished", "stdout", strings.TrimSpace(stdout))
	return stdout, nil
}

// ExecInteractive opens a shell in pod and feeds it commands one at a time,
// pausing delay between them. The session is bounded by maxDuration.
func (s *StateClient) ExecInteractive(ctx context.Context, pod string, commands []string, delay, maxDuration time.Duration) (string, error) {
	if s.opts.Executor == nil {
		return "", fmt.Errorf("pod exec is not configured")
	}
	if delay <= 0 {
		delay = constants.InteractiveCommandDelay
	}
	if maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxDuration)
		defer cancel()
	}

	stdinReader, stdinWriter := io.Pipe()
	go func() {
		defer func() { _ = stdinWriter.Close() }()
		for _, cmd := range commands {
			if _, err := io.WriteString(stdinWriter, cmd+"\n"); err != nil {
				return
			}
			if err := poll.Sleep(ctx, delay); err != nil {
				return
			}
		}
		_, _ = io.WriteString(stdinWriter, "exit\n")
	}()

	stdout, _, err := s.opts.Executor.Exec(ctx, ExecRequest{
		Namespace: s.namespace,
		Pod:       pod,
		Command:   []string{"/bin/sh"},
		Stdin:     stdinReader,
		TTY:       true,
	})
	_ = stdinReader.Close()
	log.FromContext(ctx).V(1).Info("Interactive session finished", "pod", pod, "output", strings.TrimSpace(stdout))
	return stdout, err
}
