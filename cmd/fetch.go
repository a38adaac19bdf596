package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect posts from configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return eris.Wrap(err, "invalid config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		posts := fetchPosts(ctx, cfg)
		zap.L().Info("fetch complete", zap.Int("posts", len(posts)))

		return writeJSON(fetchOut, posts)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "-", "output file for fetched posts (- for stdout)")
	rootCmd.AddCommand(fetchCmd)
}
