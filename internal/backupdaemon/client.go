// Package backupdaemon is a client for the RabbitMQ backup daemon HTTP API.
package backupdaemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/httpapi"
)

// Config configures a backup daemon client.
type Config struct {
	Namespace string
	// CACert enables HTTPS on the TLS port when set.
	CACert []byte
	// BaseURL overrides the derived daemon address.
	BaseURL string
}

// DaemonURL returns the in-cluster address of the backup daemon.
func DaemonURL(namespace string, tls bool) string {
	if tls {
		return fmt.Sprintf("https://%s.%s:%d", constants.BackupDaemonName, namespace, constants.BackupDaemonTLSPort)
	}
	return fmt.Sprintf("http://%s.%s:%d", constants.BackupDaemonName, namespace, constants.BackupDaemonPort)
}

// Client talks to the backup daemon.
type Client struct {
	api *httpapi.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DaemonURL(cfg.Namespace, len(cfg.CACert) > 0)
	}
	api, err := httpapi.New(httpapi.Config{
		Component: "backup daemon",
		BaseURL:   baseURL,
		CACert:    cfg.CACert,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

func (c *Client) get(ctx context.Context, path, op string, out any) error {
	resp, err := c.api.Get(ctx, path, op)
	if err != nil {
		return err
	}
	if err := httpapi.ExpectOK(resp, op); err != nil {
		return err
	}
	return decode(resp.Body, out, op)
}

func (c *Client) post(ctx context.Context, path, op string, body any) (string, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := c.api.NewRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req, op)
	if err != nil {
		return "", err
	}
	if err := httpapi.ExpectOK(resp, op); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

// Health reads GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	health := &Health{}
	if err := c.get(ctx, "/health", "failed to read backup daemon health", health); err != nil {
		return nil, err
	}
	return health, nil
}

// ListBackups returns backup ids, oldest first.
func (c *Client) ListBackups(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/listbackups", "failed to list backups", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// BackupInfo reads the metadata of one backup.
func (c *Client) BackupInfo(ctx context.Context, id string) (*BackupInfo, error) {
	info := &BackupInfo{}
	if err := c.get(ctx, "/listbackups/"+url.PathEscape(id), "failed to read backup "+id, info); err != nil {
		return nil, err
	}
	return info, nil
}

// JobStatus reads the status of a backup or restore job.
func (c *Client) JobStatus(ctx context.Context, id string) (*JobStatus, error) {
	status := &JobStatus{}
	if err := c.get(ctx, "/jobstatus/"+url.PathEscape(id), "failed to read job status "+id, status); err != nil {
		return nil, err
	}
	return status, nil
}

// FullBackup starts a full backup and returns its job id.
func (c *Client) FullBackup(ctx context.Context) (string, error) {
	return c.post(ctx, "/backup", "failed to start full backup", nil)
}

// Restore starts restoring backup id and returns the restore task id.
func (c *Client) Restore(ctx context.Context, id string) (string, error) {
	return c.post(ctx, "/restore", "failed to start restore of "+id, restoreRequest{Vault: id})
}
