package backupdaemon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Health statuses reported by GET /health.
const (
	HealthUp      = "UP"
	HealthWarning = "Warning"
)

// Job statuses reported by GET /jobstatus/{id}.
const (
	JobSuccessful = "Successful"
	JobFailed     = "Failed"
)

// FullBackupDBList marks a backup that covers the whole RabbitMQ definition set.
const FullBackupDBList = "full backup"

// Count decodes a number the daemon may render as a JSON number or string.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", string(data), err)
	}
	*c = Count(n)
	return nil
}

// Health is the payload of GET /health.
type Health struct {
	Status  string `json:"status"`
	Storage struct {
		DumpCount Count `json:"dump_count"`
	} `json:"storage"`
}

// Ready reports whether the daemon can serve backups: UP, or Warning while
// no dump exists yet.
func (h *Health) Ready() bool {
	if h == nil {
		return false
	}
	switch h.Status {
	case HealthUp:
		return true
	case HealthWarning:
		return h.Storage.DumpCount == 0
	default:
		return false
	}
}

// BackupInfo is the payload of GET /listbackups/{id}.
type BackupInfo struct {
	DBList     string            `json:"db_list"`
	Failed     bool              `json:"failed"`
	Locked     bool              `json:"locked"`
	CustomVars map[string]string `json:"custom_vars,omitempty"`
}

// Region returns the lowercased region the backup was taken in.
func (b *BackupInfo) Region() string {
	return strings.ToLower(b.CustomVars["region"])
}

// IsFull reports whether the backup is a successful full backup.
func (b *BackupInfo) IsFull() bool {
	return b.DBList == FullBackupDBList && !b.Failed
}

// JobStatus is the payload of GET /jobstatus/{id}.
type JobStatus struct {
	Status string `json:"status"`
}

// restoreRequest is the body of POST /restore.
type restoreRequest struct {
	Vault string `json:"vault"`
}

func decode(body []byte, out any, op string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
