package rabbitmq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(Config{BaseURL: server.URL, Username: "admin", Password: "secret"})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestManagementURL(t *testing.T) {
	assert.Equal(t, "http://rabbitmq.messaging.svc:15672", ManagementURL("messaging", false))
	assert.Equal(t, "https://rabbitmq.messaging.svc:15671", ManagementURL("messaging", true))
}

func TestClusterAlive(t *testing.T) {
	nodes := []Node{{Name: "rabbit@a", Running: true}, {Name: "rabbit@b", Running: true}, {Name: "rabbit@c", Running: false}}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/nodes", r.URL.Path)
		user, _, _ := r.BasicAuth()
		require.Equal(t, "admin", user)
		writeJSON(t, w, nodes)
	}))

	assert.True(t, c.ClusterAlive(context.Background(), logr.Discard(), 2))
	assert.False(t, c.ClusterAlive(context.Background(), logr.Discard(), 3))
}

func TestClusterAlive_ErrorsCountAsNotAlive(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	assert.False(t, c.ClusterAlive(context.Background(), logr.Discard(), 1))

	garbage := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	assert.False(t, garbage.ClusterAlive(context.Background(), logr.Discard(), 1))
}

func shovelServer(t *testing.T, shovels []Shovel, missing map[string]bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/shovels" {
			writeJSON(t, w, shovels)
			return
		}
		escaped := strings.TrimPrefix(r.URL.EscapedPath(), "/api/shovels/")
		if missing[escaped] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(t, w, map[string]string{"path": escaped})
	})
}

func TestCheckShovels(t *testing.T) {
	running := func(vhost, name string) Shovel { return Shovel{VHost: vhost, Name: name, State: ShovelStateRunning} }
	stopped := func(vhost, name string) Shovel { return Shovel{VHost: vhost, Name: name, State: "terminated"} }

	tests := []struct {
		name    string
		shovels []Shovel
		missing map[string]bool
		healthy bool
		running int
	}{
		{name: "no shovels", healthy: true},
		{
			name:    "all running",
			shovels: []Shovel{running("/", "a"), running("/", "b")},
			healthy: true, running: 2,
		},
		{
			name:    "ratio at threshold",
			shovels: []Shovel{running("/", "a"), running("/", "b"), running("/", "c"), running("/", "d"), stopped("/", "e")},
			healthy: true, running: 4,
		},
		{
			name:    "ratio below threshold",
			shovels: []Shovel{running("/", "a"), stopped("/", "b")},
			healthy: false, running: 1,
		},
		{
			name:    "invalid shovel",
			shovels: []Shovel{running("/", "a"), running("orders", "b")},
			missing: map[string]bool{"orders/b": true},
			healthy: false, running: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, shovelServer(t, tt.shovels, tt.missing))
			report := c.CheckShovels(context.Background(), logr.Discard(), 0.8)
			assert.Equal(t, tt.healthy, report.Healthy)
			assert.Equal(t, tt.running, report.Running)
			assert.Equal(t, len(tt.shovels), report.Total)
		})
	}
}

func TestCheckShovels_ListFailureIsHealthy(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	report := c.CheckShovels(context.Background(), logr.Discard(), 0.8)
	assert.True(t, report.Healthy)
	assert.Zero(t, report.Total)
}

func TestShovelExists_EscapesSlashVHost(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	ok, err := c.ShovelExists(context.Background(), "/", "orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/api/shovels/%2F/orders", gotPath)
}
