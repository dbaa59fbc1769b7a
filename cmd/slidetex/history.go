package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gnemet/slidetex/internal/database"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type historyList struct {
	Conversions []database.Conversion `json:"conversions" yaml:"conversions"`
	AITokens    int                   `json:"ai_tokens" yaml:"ai_tokens"`
}

type historyEntry struct {
	Conversion *database.Conversion      `json:"conversion" yaml:"conversion"`
	Slides     []database.ConvertedSlide `json:"slides" yaml:"slides"`
}

func historyCmd() *cobra.Command {
	var id string
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions, or one conversion with its slides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("invalid format %q", format)
			}
			cfg, _, err := setup(cmd)
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

			var out any
			if id != "" {
				conv, err := database.GetConversion(ctx, db, id)
				if errors.Is(err, database.ErrNoRows) {
					return fmt.Errorf("conversion %s not found", id)
				}
				if err != nil {
					return err
				}
				slides, err := database.GetSlidesByConversion(ctx, db, id)
				if err != nil {
					return err
				}
				out = historyEntry{Conversion: conv, Slides: slides}
			} else {
				list, err := database.GetAllConversions(ctx, db)
				if err != nil {
					return err
				}
				tokens, err := database.GetTotalAITokens(ctx, db)
				if err != nil {
					return err
				}
				out = historyList{Conversions: list, AITokens: tokens}
			}
			return writeFormatted(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "show one conversion with its slides")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml")
	cmd.Flags().String("db", "", "database URL or sqlite file")
	cmd.Flags().String("db-driver", "", "database driver: sqlite|postgres")
	return cmd
}

func writeFormatted(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
