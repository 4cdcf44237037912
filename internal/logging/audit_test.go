package logging

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestLogAuditEvent(t *testing.T) {
	data := &sinkData{}
	logger := logr.New(&capturingSink{data: data})

	LogAuditEvent(logger, EventUserDeactivation, map[string]string{
		"user":    "admin",
		"service": "rabbitmq/rabbitmq-service",
	})

	assert.Equal(t, "Operator audit event", data.msg)
	assert.Equal(t, []any{
		"audit", "true",
		"event_type", "user_deactivation",
		"service", "rabbitmq/rabbitmq-service",
		"user", "admin",
	}, data.keysAndValues)
}

func TestLogAuditEvent_NoFields(t *testing.T) {
	data := &sinkData{}
	LogAuditEvent(logr.New(&capturingSink{data: data}), EventShovelRestart, nil)

	assert.Equal(t, []any{"audit", "true", "event_type", "shovel_plugin_restart"}, data.keysAndValues)
}

type sinkData struct {
	msg           string
	keysAndValues []any
}

// capturingSink records the last message and its key/value pairs.
type capturingSink struct {
	data     *sinkData
	localKVs []any
}

func (s *capturingSink) Init(logr.RuntimeInfo) {}
func (s *capturingSink) Enabled(int) bool      { return true }
func (s *capturingSink) Info(_ int, msg string, keysAndValues ...any) {
	s.data.msg = msg
	s.data.keysAndValues = append(append([]any{}, s.localKVs...), keysAndValues...)
}
func (s *capturingSink) Error(_ error, msg string, keysAndValues ...any) {
	s.data.msg = msg
	s.data.keysAndValues = append(append([]any{}, s.localKVs...), keysAndValues...)
}
func (s *capturingSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &capturingSink{data: s.data, localKVs: append(append([]any{}, s.localKVs...), keysAndValues...)}
}
func (s *capturingSink) WithName(string) logr.LogSink { return s }
