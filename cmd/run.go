package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch posts and analyze them in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return eris.Wrap(err, "invalid config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		posts := fetchPosts(ctx, cfg)
		if len(posts) == 0 {
			zap.L().Warn("no posts fetched, nothing to analyze")
			return nil
		}

		return analyzeAndSave(ctx, posts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
