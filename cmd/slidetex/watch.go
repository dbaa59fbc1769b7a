package main

import (
	"github.com/gnemet/slidetex/internal/database"
	"github.com/gnemet/slidetex/internal/observer"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var reprocess bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert every deck dropped into the stage directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := database.NewConnection(ctx, cfg.Database.Driver, cfg.Database.GetConnectStr())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.EnsureSchema(ctx, db); err != nil {
				return err
			}

			titler := newTitler(ctx, cfg, logger)
			if titler != nil {
				defer titler.Close()
			}

			obs := observer.NewObserver(cfg, db, titler, logger, nil)
			if reprocess {
				obs.ReprocessAll(ctx)
			}
			return obs.Start(ctx)
		},
	}
	cmd.Flags().String("stage", "", "directory to watch for decks")
	cmd.Flags().String("out-dir", "", "directory for converted decks")
	cmd.Flags().String("done", "", "directory for decks that were converted")
	cmd.Flags().String("db", "", "database URL or sqlite file")
	cmd.Flags().String("db-driver", "", "database driver: sqlite|postgres")
	cmd.Flags().Bool("include-hidden", false, "also convert slides marked as hidden")
	cmd.Flags().Bool("notes", false, "emit speaker notes as \\note blocks")
	cmd.Flags().Bool("ai", false, "suggest titles for untitled slides with the configured AI provider")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "clear the history and convert every finished deck again")
	return cmd
}
