package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/model"
)

var analyzeInput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score posts from a JSON file and persist fraud cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return eris.Wrap(err, "invalid config")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		posts, err := loadPosts(analyzeInput)
		if err != nil {
			return err
		}

		return analyzeAndSave(ctx, posts)
	},
}

// analyzeAndSave runs the pipeline over posts, records failed batches,
// and persists qualifying cases.
func analyzeAndSave(ctx context.Context, posts []model.Post) error {
	d, err := initDetector(cfg)
	if err != nil {
		return eris.Wrap(err, "init detector")
	}

	result, err := d.Run(ctx, posts)
	if err != nil {
		return eris.Wrap(err, "detector run")
	}

	recordFailures(result.FailedBatches)

	if len(result.Cases) == 0 {
		zap.L().Info("no posts crossed the fraud threshold",
			zap.Int("analyzed", result.Analyzed),
			zap.Int("failed_batches", len(result.FailedBatches)))
		return nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.SaveFraudCases(ctx, result.Cases)
	if err != nil {
		return eris.Wrap(err, "save fraud cases")
	}

	zap.L().Info("analysis complete",
		zap.Int("analyzed", result.Analyzed),
		zap.Int("fraud_cases", n),
		zap.Int("failed_batches", len(result.FailedBatches)))
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "posts JSON file (required)")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}
