package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

// Lister is the slice of the repository the exporter reads through.
type Lister interface {
	List(ctx context.Context, page repository.Page) ([]entity.StoredAllocation, error)
}

// Service produces XLSX bytes for persisted allocations.
type Service struct {
	repo   Lister
	logger *slog.Logger
}

func NewService(repo Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportAllocationsXLSX writes every stored allocation, newest first, using
// the template's columns plus created_at, so the file can be ingested again.
func (s *Service) ExportAllocationsXLSX(ctx context.Context) ([]byte, int, error) {
	start := time.Now()

	f, err := newWorkbook("created_at")
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()
	_ = f.SetColWidth(sheetName, "G", "G", 22)

	row := 2
	page := repository.Page{Number: 1, Size: repository.MaxPageSize}
	for {
		recs, err := s.repo.List(ctx, page)
		if err != nil {
			return nil, 0, fmt.Errorf("query allocations: %w", err)
		}
		for _, r := range recs {
			values := append(record(r.Allocation), r.CreatedAt.UTC().Format(time.RFC3339))
			if err := writeRow(f, row, values); err != nil {
				return nil, 0, err
			}
			row++
		}
		if len(recs) < page.Size {
			break
		}
		page.Number++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}

	rows := row - 2
	s.logger.Info("export.xlsx.ok",
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), rows, nil
}
