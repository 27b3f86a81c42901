package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/treb-roles/internal/domain/config"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// ReportsDir is the directory under the data dir holding run reports
const ReportsDir = "roles"

// ReportStoreAdapter writes reconciliation reports as JSON files
type ReportStoreAdapter struct {
	dir string
}

// NewReportStoreAdapter creates a report store under cfg.DataDir
func NewReportStoreAdapter(cfg *config.RuntimeConfig) *ReportStoreAdapter {
	return &ReportStoreAdapter{dir: filepath.Join(cfg.DataDir, ReportsDir)}
}

// SaveReport writes the report to <dir>/<runID>.json and returns the path
func (s *ReportStoreAdapter) SaveReport(ctx context.Context, report *models.RoleReport) (string, error) {
	if report.RunID == "" {
		return "", fmt.Errorf("report has no run id")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(s.dir, report.RunID+".json")

	// Write to temp file first
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Ensure the adapter implements the interface
var _ usecase.ReportStore = (*ReportStoreAdapter)(nil)
