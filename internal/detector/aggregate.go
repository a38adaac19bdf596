package detector

import (
	"maps"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/pixwatch/pixwatch/internal/model"
)

// GlobalScoreMap maps a post's global index (as a string key) to its
// fraud-probability estimate.
type GlobalScoreMap map[string]float64

// MergeScores unions the score maps of all successful batch results.
// Key sets of distinct batches are disjoint by construction; a collision
// means an offset-tagging bug, so it is logged and the first value kept
// rather than silently overwritten.
func MergeScores(results []BatchResult) GlobalScoreMap {
	merged := make(GlobalScoreMap)
	for _, r := range results {
		if !r.Success {
			continue
		}
		for key, score := range r.Scores {
			if prev, exists := merged[key]; exists {
				zap.L().Warn("detector: duplicate score key across batches, keeping first",
					zap.String("key", key),
					zap.Int("batch_index", r.BatchIndex),
					zap.Float64("kept", prev),
					zap.Float64("discarded", score),
				)
				continue
			}
			merged[key] = score
		}
	}
	return merged
}

// FilterByThreshold returns the posts whose score is at or above
// threshold, each annotated with its probability, in ascending global
// index order. Indices without a score are excluded, never coerced to
// zero; indices outside the input are skipped.
func FilterByThreshold(scores GlobalScoreMap, posts []model.Post, threshold float64) []model.FraudCase {
	qualifying := make([]int, 0, len(scores))
	for key, score := range scores {
		if score < threshold {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(posts) {
			continue
		}
		qualifying = append(qualifying, idx)
	}
	sort.Ints(qualifying)

	cases := make([]model.FraudCase, 0, len(qualifying))
	for _, idx := range qualifying {
		post := posts[idx]
		post.Extra = maps.Clone(post.Extra)
		cases = append(cases, model.FraudCase{
			Post:             post,
			FraudProbability: scores[strconv.Itoa(idx)],
		})
	}
	return cases
}
