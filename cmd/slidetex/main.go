package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnemet/slidetex/internal/ai"
	"github.com/gnemet/slidetex/internal/config"
	"github.com/gnemet/slidetex/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slidetex",
		Short:         "Convert PowerPoint decks into LaTeX Beamer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (default: config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "log format: text|json")

	root.AddCommand(convertCmd(), inspectCmd(), watchCmd(), historyCmd())
	return root
}

// setup loads the configuration with cmd's flags applied and installs the
// configured logger as the default.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newTitler returns the configured AI client, or nil when AI is disabled or
// cannot be set up.
func newTitler(ctx context.Context, cfg *config.Config, logger *slog.Logger) *ai.Client {
	if !cfg.AI.Enabled {
		return nil
	}
	p, ok := cfg.AI.Active()
	if !ok {
		logger.Warn("AI provider not configured, titles will not be suggested", "provider", cfg.AI.ActiveProvider)
		return nil
	}
	client, err := ai.NewClient(ctx, p)
	if err != nil {
		logger.Warn("AI client unavailable, titles will not be suggested", "error", err)
		return nil
	}
	return client
}
