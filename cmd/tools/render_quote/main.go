package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-quotes/internal/app"
	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/document"
	"github.com/noah-isme/backend-quotes/internal/export"
	"github.com/noah-isme/backend-quotes/internal/notify"
	"github.com/noah-isme/backend-quotes/internal/obs"
)

var (
	flagBudget  string
	flagFormat  string
	flagOut     string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "render_quote",
	Short:         "Render a stored budget into a quote document",
	Long:          "Loads a budget with its references from the database, renders it as PDF or XLSX and writes the file into the output directory.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRender,
}

func init() {
	rootCmd.Flags().StringVarP(&flagBudget, "budget", "b", "", "Budget id (uuid)")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "f", string(document.FormatPDF), "Output format: pdf or xlsx")
	rootCmd.Flags().StringVarP(&flagOut, "out", "o", ".", "Output directory")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", time.Minute, "Overall timeout")
	_ = rootCmd.MarkFlagRequired("budget")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "render_quote:", err)
		os.Exit(1)
	}
}

func runRender(cmd *cobra.Command, _ []string) error {
	id, err := uuid.Parse(flagBudget)
	if err != nil {
		return fmt.Errorf("--budget: %w", err)
	}
	format, err := document.ParseFormat(flagFormat)
	if err != nil {
		return fmt.Errorf("--format: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := obs.NewLogger("console", "warn")

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{ApplicationName: "render_quote", WithoutRedis: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	q, err := deps.Budgets.Quote(ctx, id)
	if errors.Is(err, budget.ErrNotFound) {
		return fmt.Errorf("budget %s not found", id)
	}
	if err != nil {
		return err
	}
	art, err := deps.Assembler.Assemble(ctx, q, format)
	if err != nil {
		_ = deps.Notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("offline render of quote %s failed: %v", document.QuoteNumber(q), err))
		return err
	}
	if err := (export.DirDelivery{Dir: flagOut}).Deliver(ctx, art.Data, art.Filename); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d bytes\n", document.QuoteNumber(q), filepath.Join(flagOut, art.Filename), len(art.Data))
	return nil
}
