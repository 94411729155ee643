package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Persister asks the host to keep the data from being evicted. The result
// is advisory.
type Persister interface {
	Persist(ctx context.Context) (bool, error)
}

// QuotaEstimator reports storage consumption. ok is false when the host
// has no quota to report.
type QuotaEstimator interface {
	Estimate(ctx context.Context) (usage types.Usage, ok bool, err error)
}

// DirHost provides both host capabilities for a data directory on the
// local filesystem. Quota is the configured budget in bytes; zero means
// no quota.
type DirHost struct {
	Dir   string
	Quota int64
}

// Persist reports whether the data directory exists and is writable.
func (h DirHost) Persist(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return false, fmt.Errorf("creating data directory: %w", err)
	}
	probe, err := os.CreateTemp(h.Dir, ".persist-*")
	if err != nil {
		return false, nil
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true, nil
}

// Estimate sums the size of every regular file under the data directory.
func (h DirHost) Estimate(ctx context.Context) (types.Usage, bool, error) {
	if h.Quota <= 0 {
		return types.Usage{}, false, nil
	}

	var used int64
	err := filepath.WalkDir(h.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		used += info.Size()
		return nil
	})
	if err != nil {
		return types.Usage{}, false, fmt.Errorf("measuring %s: %w", h.Dir, err)
	}
	return types.Usage{UsedBytes: used, TotalBytes: h.Quota}, true, nil
}
