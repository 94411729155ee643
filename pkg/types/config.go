package types

import "errors"

// Config holds the locations and limits used to open a homepage store.
type Config struct {
	Backend    string `json:"backend" yaml:"backend"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	LegacyPath string `json:"legacy_path,omitempty" yaml:"legacy_path,omitempty"`
	QuotaBytes int64  `json:"quota_bytes,omitempty" yaml:"quota_bytes,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrQuotaInvalid   = errors.New("quota must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.QuotaBytes < 0 {
		return ErrQuotaInvalid
	}
	return nil
}
