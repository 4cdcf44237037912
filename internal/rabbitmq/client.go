// Package rabbitmq is a client for the RabbitMQ management HTTP API.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"

	"github.com/netcracker/rabbitmq-operator/internal/constants"
	"github.com/netcracker/rabbitmq-operator/internal/httpapi"
)

// Node is an entry of GET /api/nodes.
type Node struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// Shovel is an entry of GET /api/shovels.
type Shovel struct {
	Node          string `json:"node"`
	Timestamp     string `json:"timestamp"`
	Name          string `json:"name"`
	VHost         string `json:"vhost"`
	Type          string `json:"type"`
	State         string `json:"state"`
	SrcURI        string `json:"src_uri"`
	SrcProtocol   string `json:"src_protocol"`
	DestProtocol  string `json:"dest_protocol"`
	DestURI       string `json:"dest_uri"`
	SrcQueue      string `json:"src_queue"`
	DestQueue     string `json:"dest_queue"`
	BlockedStatus string `json:"blocked_status"`
}

// ShovelStateRunning is the state of a healthy shovel.
const ShovelStateRunning = "running"

// Config configures a management API client.
type Config struct {
	Namespace string
	// TLS selects the encrypted management port.
	TLS      bool
	CACert   []byte
	Username string
	Password string
	// BaseURL overrides the address derived from Namespace and TLS.
	BaseURL string
}

// ManagementURL returns the management API address of the external service.
func ManagementURL(namespace string, tls bool) string {
	if tls {
		return fmt.Sprintf("https://%s.%s.svc:%d", constants.ExternalServiceName, namespace, constants.PortManagementTLS)
	}
	return fmt.Sprintf("http://%s.%s.svc:%d", constants.ExternalServiceName, namespace, constants.PortManagement)
}

// Client talks to the management API of one RabbitMQ cluster.
type Client struct {
	api *httpapi.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ManagementURL(cfg.Namespace, cfg.TLS)
	}
	api, err := httpapi.New(httpapi.Config{
		Component: "RabbitMQ management",
		BaseURL:   baseURL,
		Username:  cfg.Username,
		Password:  cfg.Password,
		CACert:    cfg.CACert,
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

func (c *Client) getJSON(ctx context.Context, path, op string, out any) error {
	resp, err := c.api.Get(ctx, path, op)
	if err != nil {
		return err
	}
	if err := httpapi.ExpectOK(resp, op); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// Nodes lists the cluster nodes.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	if err := c.getJSON(ctx, "/api/nodes", "failed to list nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// RunningNodes returns the number of nodes reporting running=true.
func (c *Client) RunningNodes(ctx context.Context) (int, error) {
	nodes, err := c.Nodes(ctx)
	if err != nil {
		return 0, err
	}
	running := 0
	for _, n := range nodes {
		if n.Running {
			running++
		}
	}
	return running, nil
}

// ClusterAlive reports whether exactly replicas nodes are running. Any
// failure to query the API counts as not alive.
func (c *Client) ClusterAlive(ctx context.Context, logger logr.Logger, replicas int) bool {
	running, err := c.RunningNodes(ctx)
	if err != nil {
		logger.Info("RabbitMQ is not ready yet", "error", err.Error())
		return false
	}
	if running != replicas {
		logger.Info("RabbitMQ is not ready yet", "runningNodes", running, "replicas", replicas)
		return false
	}
	return true
}

// Shovels lists the dynamic and static shovels.
func (c *Client) Shovels(ctx context.Context) ([]Shovel, error) {
	var shovels []Shovel
	if err := c.getJSON(ctx, "/api/shovels", "failed to list shovels", &shovels); err != nil {
		return nil, err
	}
	return shovels, nil
}

// ShovelExists reports whether the shovel can be read back by vhost and name.
func (c *Client) ShovelExists(ctx context.Context, vhost, name string) (bool, error) {
	path := fmt.Sprintf("/api/shovels/%s/%s", url.PathEscape(vhost), url.PathEscape(name))
	resp, err := c.api.Get(ctx, path, "failed to read shovel")
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}
