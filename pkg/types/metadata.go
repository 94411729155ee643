package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// MigrationState is the persisted position of the legacy migration.
type MigrationState string

// Migration states, in order.
const (
	MigrationNotStarted   MigrationState = "not_started"
	MigrationBackedUp     MigrationState = "backed_up"
	MigrationTransforming MigrationState = "transforming"
	MigrationComplete     MigrationState = "complete"
)

// MigrationVersion is stamped on the completion record.
const MigrationVersion = "2.0"

// BackupVersion is stamped on the pre-migration backup.
const BackupVersion = "1.0"

// MigrationRecord is stored under metadata[MigrationKey].
type MigrationRecord struct {
	State     MigrationState `json:"state,omitempty"`
	Completed bool           `json:"completed"`
	Timestamp int64          `json:"timestamp"`
	Version   string         `json:"version,omitempty"`
}

// CurrentState returns the effective state. Records written before states
// were tracked only carry Completed.
func (r *MigrationRecord) CurrentState() MigrationState {
	if r == nil {
		return MigrationNotStarted
	}
	if r.Completed {
		return MigrationComplete
	}
	if r.State == "" {
		return MigrationNotStarted
	}
	return r.State
}

// MigrationBackup is stored under metadata[PreMigrationBackupKey].
type MigrationBackup struct {
	Timestamp string                     `json:"timestamp"`
	Version   string                     `json:"version"`
	Data      map[string]json.RawMessage `json:"data"`
}

// LastUpdated is stored under metadata[LastUpdatedKey].
type LastUpdated struct {
	Timestamp int64 `json:"timestamp"`
}

// Time returns the stamp as a time.Time.
func (l LastUpdated) Time() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// Usage reports storage consumption.
type Usage struct {
	UsedBytes  int64 `json:"usedBytes"`
	TotalBytes int64 `json:"totalBytes"`
}

// UsedMB returns UsedBytes in megabytes, formatted with two decimals.
func (u Usage) UsedMB() string { return fmt.Sprintf("%.2f", float64(u.UsedBytes)/1024/1024) }

// TotalMB returns TotalBytes in megabytes, formatted with two decimals.
func (u Usage) TotalMB() string { return fmt.Sprintf("%.2f", float64(u.TotalBytes)/1024/1024) }

// PercentUsed returns the used fraction as a percentage.
func (u Usage) PercentUsed() float64 {
	if u.TotalBytes <= 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.TotalBytes) * 100
}
