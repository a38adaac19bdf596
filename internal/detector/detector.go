package detector

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pixwatch/pixwatch/internal/model"
	"github.com/pixwatch/pixwatch/pkg/openrouter"
)

// Config holds the detector's tuning knobs. All values are validated by
// New; a bad value never makes it past construction.
type Config struct {
	Model          string
	BatchSize      int
	MaxConcurrent  int
	RequestDelay   time.Duration
	MaxRetries     int
	Threshold      float64
	PromptTemplate string
}

// Detector runs the batch LLM-scoring pipeline over a post sequence.
type Detector struct {
	client  openrouter.Client
	cfg     Config
	limiter *rate.Limiter
}

// Result summarizes one pipeline run. FailedBatches carries the failed
// results for dead-letter recording; an empty Cases slice with zero
// failures means nothing qualified, which is not an error.
type Result struct {
	Cases         []model.FraudCase
	FailedBatches []BatchResult
	Analyzed      int
	BatchesTotal  int
}

// New creates a Detector, validating the configuration.
func New(client openrouter.Client, cfg Config) (*Detector, error) {
	if cfg.Model == "" {
		return nil, eris.New("detector: model is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, eris.Errorf("detector: batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, eris.Errorf("detector: max concurrent requests must be positive, got %d", cfg.MaxConcurrent)
	}
	if cfg.RequestDelay < 0 {
		return nil, eris.Errorf("detector: request delay must be non-negative, got %s", cfg.RequestDelay)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, eris.Errorf("detector: threshold must be in [0,1], got %g", cfg.Threshold)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	if err := ValidateTemplate(cfg.PromptTemplate); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}

	return &Detector{client: client, cfg: cfg, limiter: limiter}, nil
}

// Run scores all posts and returns the cases at or above the threshold.
// Individual batch failures are isolated and reported in the result; the
// run only errors on cancellation. A run with zero successful batches
// yields an empty qualifying set.
func (d *Detector) Run(ctx context.Context, posts []model.Post) (*Result, error) {
	res := &Result{Analyzed: len(posts)}
	if len(posts) == 0 {
		zap.L().Info("detector: no posts to analyze")
		return res, nil
	}

	batches, err := SplitBatches(posts, d.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	res.BatchesTotal = len(batches)

	zap.L().Info("detector: dispatching batches",
		zap.Int("posts", len(posts)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Int("max_concurrent", d.cfg.MaxConcurrent),
	)

	results := d.processBatches(ctx, batches)
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "detector: run cancelled")
	}

	for _, r := range results {
		if !r.Success {
			res.FailedBatches = append(res.FailedBatches, r)
		}
	}

	scores := MergeScores(results)
	res.Cases = FilterByThreshold(scores, posts, d.cfg.Threshold)

	zap.L().Info("detector: run complete",
		zap.Int("analyzed", res.Analyzed),
		zap.Int("qualifying", len(res.Cases)),
		zap.Float64("threshold", d.cfg.Threshold),
		zap.Int("batches_succeeded", res.BatchesTotal-len(res.FailedBatches)),
		zap.Int("batches_failed", len(res.FailedBatches)),
	)

	return res, nil
}
