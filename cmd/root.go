package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pixwatch",
	Short: "Pix fraud report detector",
	Long:  "Collects posts from Twitter and Reddit, scores them in batches with an LLM via OpenRouter, and persists posts that look like first-person pix fraud reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
