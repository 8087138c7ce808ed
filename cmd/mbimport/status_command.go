package main

import (
	"github.com/spf13/cobra"

	"github.com/danjacka/mbrainz-importer/internal/importer"
	"github.com/danjacka/mbrainz-importer/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show committed batch units per entity type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			im, err := importer.New(cfg, logging.NewNop())
			if err != nil {
				return err
			}
			status, err := im.Status(cmd.Context())
			if err != nil {
				return err
			}
			renderImportStatus(cmd.OutOrStdout(), cfg.Store.Kind, status)
			return nil
		},
	}
}
