package main

import (
	"fmt"

	"github.com/gnemet/slidetex/internal/beamer"
	"github.com/gnemet/slidetex/internal/deck"
	"github.com/gnemet/slidetex/internal/pptx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type pictureView struct {
	Name        string `yaml:"name"`
	ContentType string `yaml:"content_type"`
}

type slideView struct {
	Title      string        `yaml:"title"`
	Hidden     bool          `yaml:"hidden,omitempty"`
	Section    bool          `yaml:"section,omitempty"`
	Pictures   []pictureView `yaml:"pictures,omitempty"`
	deck.Slide `yaml:",inline"`
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <deck.pptx>",
		Short: "Print the parsed slides of a deck as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			doc, err := pptx.Open(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			var views []slideView
			for _, s := range doc.Slides() {
				if s.Hidden() && !cfg.Convert.IncludeHidden {
					continue
				}
				v := slideView{
					Title:   beamer.SlideTitle(s),
					Hidden:  s.Hidden(),
					Section: s.IsSectionHeader(),
					Slide:   *s,
				}
				for _, p := range s.Pictures {
					v.Pictures = append(v.Pictures, pictureView{Name: p.Name(), ContentType: p.ContentType()})
				}
				views = append(views, v)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"slides": views}); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().Bool("include-hidden", false, "also list slides marked as hidden")
	return cmd
}
