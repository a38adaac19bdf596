package detector

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixwatch/pixwatch/internal/model"
)

func TestMergeScores_UnionOfSuccesses(t *testing.T) {
	results := []BatchResult{
		{Success: true, BatchIndex: 0, Scores: map[string]float64{"0": 0.9, "1": 0.2}},
		{Success: false, BatchIndex: 1, Error: "HTTP 503"},
		{Success: true, BatchIndex: 2, Scores: map[string]float64{"20": 0.75}},
	}

	merged := MergeScores(results)
	assert.Equal(t, GlobalScoreMap{"0": 0.9, "1": 0.2, "20": 0.75}, merged)
}

func TestMergeScores_DisjointKeys(t *testing.T) {
	// Correct global-offset tagging means distinct batches never share keys.
	posts := makePosts(40)
	batches, err := SplitBatches(posts, 15)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, b := range batches {
		for i := range b.Posts {
			key := strconv.Itoa(b.Offset + i)
			seen[key]++
		}
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "key %s", key)
	}
}

func TestMergeScores_CollisionKeepsFirst(t *testing.T) {
	results := []BatchResult{
		{Success: true, BatchIndex: 0, Scores: map[string]float64{"3": 0.9}},
		{Success: true, BatchIndex: 1, Scores: map[string]float64{"3": 0.1}},
	}

	merged := MergeScores(results)
	assert.Equal(t, 0.9, merged["3"])
}

func TestFilterByThreshold(t *testing.T) {
	posts := []model.Post{
		{Text: "caso zero", Source: "twitter"},
		{Text: "caso um", Source: "twitter"},
		{Text: "caso dois", Source: "reddit"},
	}
	scores := GlobalScoreMap{"0": 0.9, "1": 0.2, "2": 0.75}

	cases := FilterByThreshold(scores, posts, 0.7)

	require.Len(t, cases, 2)
	assert.Equal(t, "caso zero", cases[0].Text)
	assert.Equal(t, 0.9, cases[0].FraudProbability)
	assert.Equal(t, "caso dois", cases[1].Text)
	assert.Equal(t, 0.75, cases[1].FraudProbability)
}

func TestFilterByThreshold_AscendingIndexOrder(t *testing.T) {
	posts := makePosts(30)
	scores := GlobalScoreMap{"21": 0.8, "3": 0.9, "17": 0.99}

	cases := FilterByThreshold(scores, posts, 0.7)

	require.Len(t, cases, 3)
	assert.Equal(t, "post 3", cases[0].Text)
	assert.Equal(t, "post 17", cases[1].Text)
	assert.Equal(t, "post 21", cases[2].Text)
}

func TestFilterByThreshold_OutOfRangeKeyDropped(t *testing.T) {
	posts := makePosts(3)
	scores := GlobalScoreMap{"1": 0.9, "3": 0.95, "-1": 0.99}

	cases := FilterByThreshold(scores, posts, 0.7)

	require.Len(t, cases, 1)
	assert.Equal(t, "post 1", cases[0].Text)
}

func TestFilterByThreshold_MissingIndexNotCoerced(t *testing.T) {
	// Index 1 has no score at all; it must simply be absent, not scored 0.
	posts := makePosts(3)
	scores := GlobalScoreMap{"0": 0.1, "2": 0.1}

	cases := FilterByThreshold(scores, posts, 0.0)
	assert.Len(t, cases, 2)
}

func TestFilterByThreshold_InclusiveBoundary(t *testing.T) {
	posts := makePosts(1)
	cases := FilterByThreshold(GlobalScoreMap{"0": 0.7}, posts, 0.7)
	assert.Len(t, cases, 1)
}

func TestFilterByThreshold_CopiesExtraMap(t *testing.T) {
	posts := []model.Post{{Text: "x", Extra: map[string]any{"lang": "pt"}}}
	cases := FilterByThreshold(GlobalScoreMap{"0": 1}, posts, 0.5)

	require.Len(t, cases, 1)
	cases[0].Extra["lang"] = "en"
	assert.Equal(t, "pt", posts[0].Extra["lang"])
}
