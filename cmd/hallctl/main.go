// Command hallctl ingests hall allocation files and inspects the allocation store.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/john-shalamon/exam-hall-system/internal/app"
	"github.com/john-shalamon/exam-hall-system/internal/common"
)

const (
	Version = "0.3.0"
	appName = "hallctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals carries the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	inmem      bool

	out    io.Writer
	errOut io.Writer
}

func rootCmd(out, errOut io.Writer) *cobra.Command {
	g := &globals{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Exam hall allocation ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&g.jsonLogs, "json-logs", false, "Emit logs as JSON")
	pf.BoolVar(&g.inmem, "inmem", false, "Use a provisioned in-memory SQLite store")

	cmd.AddCommand(
		ingestCmd(g),
		ingestDirCmd(g),
		lookupCmd(g),
		listCmd(g),
		provisionCmd(g),
		templateCmd(g),
		exportCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func (g *globals) config() (*common.Config, error) {
	cfg, err := common.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ":memory:"
	}
	return cfg, nil
}

func (g *globals) logger(cfg *common.Config) *slog.Logger {
	l := app.NewLogger(g.errOut, cfg.LogLevel, g.jsonLogs)
	slog.SetDefault(l)
	return l
}

// open builds the full stack. An in-memory store is provisioned on the spot.
func (g *globals) open(ctx context.Context) (*app.App, *slog.Logger, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	logger := g.logger(cfg)
	// metrics are only scraped from the daemon
	a, err := app.Build(ctx, cfg, logger, app.WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		return nil, nil, err
	}
	if g.inmem {
		if err := a.Repo.Provision(ctx, false); err != nil {
			_ = a.Close()
			return nil, nil, err
		}
	}
	return a, logger, nil
}
