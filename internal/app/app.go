// Package app assembles the ingestion stack from configuration. Both binaries
// build on it so the daemon and the CLI run the same pipeline.
package app

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/john-shalamon/exam-hall-system/internal/commit"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/extract"
	"github.com/john-shalamon/exam-hall-system/internal/llm/openai"
	"github.com/john-shalamon/exam-hall-system/internal/metrics"
	"github.com/john-shalamon/exam-hall-system/internal/ocr"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

// NewLogger returns a text or JSON slog logger at the named level.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App holds the wired components.
type App struct {
	Repo      repository.AllocationRepository
	Engine    *commit.Engine
	Processor *pipeline.Processor
	Metrics   *metrics.Recorder
}

type buildOptions struct {
	registry prometheus.Registerer
}

type Option func(*buildOptions)

// WithRegistry registers metrics on reg instead of the default registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *buildOptions) { o.registry = reg }
}

// Build opens the configured store and wires the pipeline on top of it.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bo := buildOptions{registry: prometheus.DefaultRegisterer}
	for _, o := range opts {
		o(&bo)
	}

	var structurer extract.Structurer
	if cfg.Ingest.Strategy == extract.LLMV1Name {
		client := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		logger.Info("model structuring enabled", "model", client.Model())
		structurer = extract.NewLLMV1(client, logger)
	} else {
		s, err := extract.Lookup(cfg.Ingest.Strategy)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "ingest.strategy", err)
		}
		structurer = s
	}

	repo, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New(metrics.WithRegistry(bo.registry))
	engine := commit.NewEngine(repo, logger,
		commit.WithBatchSize(cfg.Ingest.BatchSize),
		commit.WithAcceptanceCheck(cfg.Ingest.AcceptanceCheck),
		commit.WithMetrics(m),
	)
	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Lang,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		PSM:                 cfg.OCR.PSM,
		OEM:                 cfg.OCR.OEM,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
	}, logger)
	proc := pipeline.NewProcessor(engine, extract.NewOCRAdapter(extractor, logger), structurer, logger,
		pipeline.WithMetrics(m),
	)

	logger.Info("app wired",
		"driver", repo.Dialect(),
		"batch_size", engine.BatchSize(),
		"strategy", structurer.Name(),
		"acceptance_check", cfg.Ingest.AcceptanceCheck,
	)
	return &App{Repo: repo, Engine: engine, Processor: proc, Metrics: m}, nil
}

func (a *App) Close() error {
	if a == nil || a.Repo == nil {
		return nil
	}
	return a.Repo.Close()
}
