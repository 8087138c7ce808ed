package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danjacka/mbrainz-importer/internal/importer"
	"github.com/danjacka/mbrainz-importer/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Extract and load every configured entity type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, (*importer.Importer).Run)
		},
	}
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Prepare batch unit files without loading them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, (*importer.Importer).Extract)
		},
	}
}

func newLoadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load batch unit files prepared by an earlier extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, (*importer.Importer).Load)
		},
	}
}

func executeRun(cmd *cobra.Command, cmdCtx *commandContext, phase func(*importer.Importer, context.Context) (*importer.RunSummary, error)) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewRunLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	im, err := importer.New(cfg, logger)
	if err != nil {
		return err
	}

	summary, runErr := phase(im, signalCtx)
	if summary != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		renderRunSummary(out, summary)
	}
	return runErr
}
