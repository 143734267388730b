package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/export"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

func lookupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup REGISTER_NUMBER",
		Short: "Show the allocation for a register number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.NewValidator().
				Field("register_number", args[0], common.Required, common.MaxLength(64)).
				Error(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, _, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			got, err := a.Repo.SelectByKey(ctx, args[0])
			if err != nil {
				return err
			}
			if got == nil {
				return fmt.Errorf("no allocation for %s: %w", args[0], common.ErrNotFound)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(got)
		},
	}
}

func listCmd(g *globals) *cobra.Command {
	var page repository.Page
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored allocations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			p := page.Normalize()
			items, err := a.Repo.List(ctx, p)
			if err != nil {
				return err
			}
			total, err := a.Repo.Count(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "REGISTER\tSTUDENT\tHALL\tSEAT\tDATE\tTIME")
			for _, it := range items {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					it.RegisterNumber, it.StudentName, it.HallName, it.SeatNumber, it.ExamDate, it.ExamTime)
			}
			_ = tw.Flush()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "page %d (size %d) of %d total\n", p.Number, p.Size, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page.Number, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&page.Size, "page-size", repository.DefaultPageSize, "Rows per page (max 100)")
	return cmd
}

func provisionCmd(g *globals) *cobra.Command {
	var seed, printOnly bool
	var dialect string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the hall_allocations table (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				if err := common.NewValidator().
					Field("dialect", dialect, common.Required,
						common.OneOf(string(repository.DialectPostgres), string(repository.DialectSQLite))).
					Error(); err != nil {
					return err
				}
				sql, err := repository.SchemaSQL(repository.Dialect(dialect), seed)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), sql)
				return err
			}
			ctx := cmd.Context()
			a, logger, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Repo.Provision(ctx, seed); err != nil {
				return err
			}
			logger.Info("table provisioned", "dialect", a.Repo.Dialect(), "seed", seed)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s ready\n", constants.TableName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Insert the sample rows")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the setup SQL instead of running it")
	cmd.Flags().StringVar(&dialect, "dialect", string(repository.DialectPostgres), "SQL dialect for --print (postgres, sqlite)")
	return cmd
}

func templateCmd(g *globals) *cobra.Command {
	var xlsx bool
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the allocation upload template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := export.TemplateCSV()
			if xlsx {
				var err error
				if body, err = export.TemplateXLSX(); err != nil {
					return err
				}
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(output, body, 0o644)
		},
	}
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Write the spreadsheet form instead of CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored allocation to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, logger, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			body, n, err := export.NewService(a.Repo, logger).ExportAllocationsXLSX(ctx)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d allocations to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "allocations.xlsx", "Output XLSX path")
	return cmd
}
