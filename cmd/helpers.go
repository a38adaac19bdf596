package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/config"
	"github.com/pixwatch/pixwatch/internal/detector"
	"github.com/pixwatch/pixwatch/internal/model"
	"github.com/pixwatch/pixwatch/internal/resilience"
	"github.com/pixwatch/pixwatch/internal/store"
	"github.com/pixwatch/pixwatch/pkg/openrouter"
	"github.com/pixwatch/pixwatch/pkg/reddit"
	"github.com/pixwatch/pixwatch/pkg/twitter"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initDetector(c *config.Config) (*detector.Detector, error) {
	var opts []openrouter.Option
	if c.LLM.BaseURL != "" {
		opts = append(opts, openrouter.WithBaseURL(c.LLM.BaseURL))
	}
	if c.LLM.RequestTimeoutSecs > 0 {
		opts = append(opts, openrouter.WithTimeout(c.LLM.RequestTimeout()))
	}
	client := openrouter.NewClient(c.LLM.APIKey, opts...)

	template := ""
	if c.LLM.PromptTemplateFile != "" {
		b, err := os.ReadFile(c.LLM.PromptTemplateFile)
		if err != nil {
			return nil, eris.Wrap(err, "read prompt template")
		}
		template = string(b)
	}

	return detector.New(client, detector.Config{
		Model:          c.LLM.Model,
		BatchSize:      c.LLM.BatchSize,
		MaxConcurrent:  c.LLM.MaxConcurrent,
		RequestDelay:   c.LLM.RequestDelay(),
		MaxRetries:     c.LLM.MaxRetries,
		Threshold:      c.Detector.FraudThreshold,
		PromptTemplate: template,
	})
}

// fetchPosts collects posts from every configured source. A source that
// fails is logged and skipped so one outage does not empty a run.
func fetchPosts(ctx context.Context, c *config.Config) []model.Post {
	var posts []model.Post

	if c.Twitter.BearerToken != "" {
		tc := twitter.NewClient(c.Twitter.BearerToken)
		got, err := tc.SearchRecent(ctx, c.Twitter.Query, c.Twitter.MaxResults)
		if err != nil {
			zap.L().Error("twitter fetch failed", zap.Error(err))
		} else {
			zap.L().Info("fetched posts", zap.String("source", "twitter"), zap.Int("count", len(got)))
			posts = append(posts, got...)
		}
	}

	if len(c.Reddit.Subreddits) > 0 {
		var opts []reddit.Option
		if c.Reddit.UserAgent != "" {
			opts = append(opts, reddit.WithUserAgent(c.Reddit.UserAgent))
		}
		rc := reddit.NewClient(opts...)
		for _, sub := range c.Reddit.Subreddits {
			got, err := rc.SearchSubreddit(ctx, sub, c.Reddit.Query, c.Reddit.MaxResults)
			if err != nil {
				zap.L().Error("reddit fetch failed", zap.String("subreddit", sub), zap.Error(err))
				continue
			}
			zap.L().Info("fetched posts",
				zap.String("source", "reddit"),
				zap.String("subreddit", sub),
				zap.Int("count", len(got)))
			posts = append(posts, got...)
		}
	}

	return posts
}

// recordFailures writes failed batches to the dead-letter file.
func recordFailures(failed []detector.BatchResult) {
	if len(failed) == 0 || cfg.Store.DLQPath == "" {
		return
	}

	now := time.Now().UTC()
	entries := make([]resilience.DLQEntry, 0, len(failed))
	for _, f := range failed {
		entries = append(entries, resilience.DLQEntry{
			BatchIndex:  f.BatchIndex,
			GlobalStart: f.Offset,
			GlobalEnd:   f.Offset + f.Size,
			Error:       f.Error,
			ErrorType:   f.ErrorType,
			CreatedAt:   now,
		})
	}
	if err := resilience.AppendDLQ(cfg.Store.DLQPath, entries); err != nil {
		zap.L().Error("write dead-letter file failed", zap.Error(err))
		return
	}
	zap.L().Warn("recorded failed batches",
		zap.Int("batches", len(entries)),
		zap.String("path", cfg.Store.DLQPath))
}

func loadPosts(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read posts file")
	}
	var posts []model.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, eris.Wrap(err, "parse posts file")
	}
	return posts, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrap(err, "write output file")
	}
	return nil
}
