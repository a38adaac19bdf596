package detector

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pixwatch/pixwatch/internal/resilience"
	"github.com/pixwatch/pixwatch/pkg/openrouter"
)

// BatchResult is the outcome of scoring one batch. Exactly one is
// produced per dispatched batch and it is never mutated afterwards.
type BatchResult struct {
	Success    bool
	BatchIndex int
	Offset     int
	Size       int
	Scores     map[string]float64
	Error      string
	ErrorType  string // resilience.ClassifyError, set when Success is false
}

// processBatches fans out one worker per batch, at most MaxConcurrent in
// flight. Workers never abort each other: every failure is converted to a
// failed BatchResult at the batch boundary, and each worker writes only
// its own slot.
func (d *Detector) processBatches(ctx context.Context, batches []Batch) []BatchResult {
	results := make([]BatchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(d.cfg.MaxConcurrent)
	for i := range batches {
		g.Go(func() error {
			results[i] = d.processBatch(ctx, batches[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Detector) processBatch(ctx context.Context, b Batch) BatchResult {
	// Smooth burst load: the shared limiter spaces out sends by the
	// configured request delay after a concurrency slot is acquired.
	if err := d.limiter.Wait(ctx); err != nil {
		return d.failBatch(b, err)
	}

	prompt := RenderPrompt(d.cfg.PromptTemplate, b)

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = d.cfg.MaxRetries
	retryCfg.OnRetry = resilience.RetryLogger("openrouter", "chat_completion")

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*openrouter.ChatCompletionResponse, error) {
		return d.client.ChatCompletion(ctx, openrouter.ChatCompletionRequest{
			Model:    d.cfg.Model,
			Messages: []openrouter.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return d.failBatch(b, err)
	}

	scores, err := ParseScoreMap(resp.AnswerText())
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			zap.L().Warn("detector: batch response is not a valid score map",
				zap.Int("batch_index", b.Index),
				zap.String("response_prefix", pe.Snippet),
			)
		}
		return d.failBatch(b, err)
	}

	return BatchResult{
		Success:    true,
		BatchIndex: b.Index,
		Offset:     b.Offset,
		Size:       len(b.Posts),
		Scores:     dropOutOfRange(scores, b),
	}
}

func (d *Detector) failBatch(b Batch, err error) BatchResult {
	zap.L().Warn("detector: batch failed",
		zap.Int("batch_index", b.Index),
		zap.Int("global_start", b.Offset),
		zap.Int("global_end", b.End()),
		zap.Error(err),
	)
	return BatchResult{
		BatchIndex: b.Index,
		Offset:     b.Offset,
		Size:       len(b.Posts),
		Error:      err.Error(),
		ErrorType:  resilience.ClassifyError(err),
	}
}

// dropOutOfRange removes score keys outside the batch's global index
// range. Such keys violate the model's output contract and must not leak
// into the global score map.
func dropOutOfRange(scores map[string]float64, b Batch) map[string]float64 {
	kept := make(map[string]float64, len(scores))
	for key, score := range scores {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < b.Offset || idx >= b.End() {
			zap.L().Warn("detector: dropping score key outside batch range",
				zap.Int("batch_index", b.Index),
				zap.String("key", key),
				zap.Int("global_start", b.Offset),
				zap.Int("global_end", b.End()),
			)
			continue
		}
		kept[key] = score
	}
	return kept
}
