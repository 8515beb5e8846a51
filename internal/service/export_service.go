package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medianote/api/internal/export"
	"github.com/medianote/api/internal/model"
)

// ExportService converts note markdown into document artifacts.
type ExportService struct {
	exporter *export.Exporter
}

// NewExportService creates an export service over the export pipeline.
func NewExportService(exporter *export.Exporter) *ExportService {
	return &ExportService{exporter: exporter}
}

// Export runs the export pipeline and reports the written artifact.
func (s *ExportService) Export(ctx context.Context, req *model.ExportRequest) (*model.ExportResponse, error) {
	path, err := s.exporter.Export(ctx, req.Format, req.Title, req.Content)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &model.ExportResponse{
		FilePath: path,
		Format:   strings.TrimPrefix(filepath.Ext(path), "."),
		Size:     info.Size(),
	}, nil
}
