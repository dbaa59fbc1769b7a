package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gnemet/slidetex/internal/beamer"
	"github.com/spf13/cobra"
)

type convertSummary struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	*beamer.Result
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <deck.pptx>",
		Short: "Convert a deck into a Beamer .tex file and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			in := args[0]
			out := cfg.Convert.Output
			if out == "" {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".tex"
			}

			opts := beamer.Options{
				IncludeHidden:    cfg.Convert.IncludeHidden,
				Notes:            cfg.Convert.Notes,
				Escape:           cfg.Convert.Escape,
				TranscodeBitmaps: cfg.Convert.TranscodeBitmaps,
				Logger:           logger,
			}
			if cfg.Convert.ImageDir != "" {
				opts.Images = beamer.DirStore{Dir: cfg.Convert.ImageDir}
			}
			if titler := newTitler(cmd.Context(), cfg, logger); titler != nil {
				defer titler.Close()
				opts.Titler = titler
			}

			res, err := beamer.ConvertFile(cmd.Context(), in, out, opts)
			if err != nil {
				return fmt.Errorf("convert %s: %w", in, err)
			}
			b, _ := json.MarshalIndent(convertSummary{Input: in, Output: out, Result: res}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output .tex file (default: <deck>.tex next to the input)")
	cmd.Flags().Bool("include-hidden", false, "also convert slides marked as hidden")
	cmd.Flags().String("images", "", "directory for extracted images (default: the output directory)")
	cmd.Flags().Bool("notes", false, "emit speaker notes as \\note blocks")
	cmd.Flags().Bool("escape", false, "escape LaTeX special characters in titles and items")
	cmd.Flags().Bool("transcode-bitmaps", false, "re-encode pictures that would be written as .bmp to PNG")
	cmd.Flags().Bool("ai", false, "suggest titles for untitled slides with the configured AI provider")
	return cmd
}
