package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/JonMunkholm/dbexport/internal/core"
)

// TimeLayout is the manifest's generated_at format.
const TimeLayout = "2006-01-02 15:04:05"

// Manifest describes a published database artifact.
type Manifest struct {
	DBGz        string      `json:"db_gz"`
	SHA256      string      `json:"sha256"`
	GeneratedAt string      `json:"generated_at"`
	RunID       string      `json:"run_id,omitempty"`
	Rows        core.Counts `json:"rows"`
}

// NewManifest stamps a manifest for the compressed file dbGz.
func NewManifest(dbGz, sha string, rows core.Counts, runID string, now time.Time) Manifest {
	return Manifest{
		DBGz:        dbGz,
		SHA256:      sha,
		GeneratedAt: now.Format(TimeLayout),
		RunID:       runID,
		Rows:        rows,
	}
}

// WriteManifest writes m to path as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}
