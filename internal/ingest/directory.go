package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
)

// Executor runs one source through the pipeline.
type Executor interface {
	Execute(ctx context.Context, run *pipeline.Run, src pipeline.Source) (pipeline.Summary, error)
}

type FileResult struct {
	Path    string
	RunID   string
	Records int
	Err     string
}

type DirStats struct {
	Scanned   int
	Matched   int
	Succeeded int
	Failed    int
	Records   int
}

type DirOptions struct {
	Filter
	// Sink, when set, builds the progress sink for each file's run.
	Sink   func(path string) pipeline.ProgressSink
	Logger *slog.Logger
}

// IngestDirectory walks root and runs every matching file through exec, one
// after another. A failing file is recorded and the walk goes on; only a
// cancelled ctx or an unreadable root stops it.
func IngestDirectory(ctx context.Context, exec Executor, root string, opts DirOptions) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, "root path is required", common.ErrInvalidInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, err.Error(), common.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if d.IsDir() {
			if path != root && opts.SkipHidden && IsHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if !opts.Match(root, path) {
			return nil
		}
		stats.Matched++

		var sink pipeline.ProgressSink
		if opts.Sink != nil {
			sink = opts.Sink(path)
		}
		run := pipeline.NewRun(path, sink)
		sum, err := exec.Execute(ctx, run, pipeline.Source{Name: filepath.Base(path), Path: path})
		if err != nil {
			logger.Warn("file ingest failed", "path", path, "run_id", run.ID(), "error", err)
			results = append(results, FileResult{Path: path, RunID: run.ID().String(), Records: sum.Records, Err: err.Error()})
			stats.Failed++
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		}
		results = append(results, FileResult{Path: path, RunID: run.ID().String(), Records: sum.Records})
		stats.Succeeded++
		stats.Records += sum.Records
		return nil
	})

	logger.Info("directory ingest finished",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"records", stats.Records,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
