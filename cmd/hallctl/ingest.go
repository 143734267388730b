package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/ingest"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
)

func progressPrinter(w io.Writer, name string) pipeline.ProgressSink {
	return func(stage constants.Stage, pct float64) {
		_, _ = fmt.Fprintf(w, "%s: %-11s %5.1f%%\n", name, stage, pct)
	}
}

func ingestCmd(g *globals) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "ingest PATH...",
		Short: "Ingest allocation files (csv, xlsx, xls or an image) one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				var sink pipeline.ProgressSink
				if !quiet {
					sink = progressPrinter(out, filepath.Base(path))
				}
				run := pipeline.NewRun(path, sink)
				sum, err := a.Processor.Execute(ctx, run, pipeline.Source{Name: filepath.Base(path), Path: path})
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(out, "%s: failed after %d of %d batches: %v\n", path, sum.BatchesCommitted, sum.Batches, err)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s: %d records in %d batches (run %s)\n", path, sum.Records, sum.Batches, run.ID())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress events")
	return cmd
}

func ingestDirCmd(g *globals) *cobra.Command {
	var (
		include    []string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "ingest-dir DIR",
		Short: "Ingest every supported file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, logger, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			results, stats, err := ingest.IngestDirectory(ctx, a.Processor, args[0], ingest.DirOptions{
				Filter: ingest.Filter{Include: include, SkipHidden: skipHidden},
				Logger: logger,
			})
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != "" {
					_, _ = fmt.Fprintf(out, "FAIL %s: %s\n", r.Path, r.Err)
					continue
				}
				_, _ = fmt.Fprintf(out, "ok   %s: %d records\n", r.Path, r.Records)
			}
			_, _ = fmt.Fprintf(out, "scanned=%d matched=%d succeeded=%d failed=%d records=%d\n",
				stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed, stats.Records)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d files failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "Glob relative to DIR, e.g. 'halls/**/*.csv' (repeatable)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip dot files and directories")
	return cmd
}
