package config

import (
	"fmt"
	"time"
)

// Archive backends.
const (
	ArchiveNone = "none"
	ArchiveFS   = "fs"
	ArchiveGCS  = "gcs"
)

// ArchiveConfig selects where project exports are stored.
type ArchiveConfig struct {
	Backend   string `env:"ATELIER_ARCHIVE_BACKEND" default:"fs"`
	FSDir     string `env:"ATELIER_ARCHIVE_DIR" default:"./atelier-exports"`
	GCSBucket string `env:"ATELIER_GCS_BUCKET"`
	GCSPrefix string `env:"ATELIER_GCS_PREFIX" default:"exports/"`

	BreakerTimeout   time.Duration `env:"ATELIER_ARCHIVE_BREAKER_TIMEOUT"`
	BreakerThreshold int           `env:"ATELIER_ARCHIVE_BREAKER_THRESHOLD"`
}

// Validate checks that the selected backend has what it needs.
func (c *ArchiveConfig) Validate() error {
	switch c.Backend {
	case ArchiveNone:
	case ArchiveFS:
		if c.FSDir == "" {
			return fmt.Errorf("ATELIER_ARCHIVE_DIR is required when ATELIER_ARCHIVE_BACKEND is %q", ArchiveFS)
		}
	case ArchiveGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("ATELIER_GCS_BUCKET is required when ATELIER_ARCHIVE_BACKEND is %q", ArchiveGCS)
		}
	default:
		return fmt.Errorf("unknown ATELIER_ARCHIVE_BACKEND: %q", c.Backend)
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("ATELIER_ARCHIVE_BREAKER_THRESHOLD must be >= 0")
	}
	return nil
}
