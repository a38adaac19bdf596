package detector

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreMap_Plain(t *testing.T) {
	scores, err := ParseScoreMap(`{"0": 0.95, "1": 0.15, "2": 0.6}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"0": 0.95, "1": 0.15, "2": 0.6}, scores)
}

func TestParseScoreMap_FenceIdempotence(t *testing.T) {
	body := `{"10": 0.8, "11": 0.2}`

	plain, err := ParseScoreMap(body)
	require.NoError(t, err)

	for _, wrapped := range []string{
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
		"```json\n" + body + "\n```\n\n",
		"  \n```json\n" + body + "\n```  ",
	} {
		fenced, err := ParseScoreMap(wrapped)
		require.NoError(t, err, "input %q", wrapped)
		assert.Equal(t, plain, fenced)
	}
}

func TestParseScoreMap_FenceWithoutClosing(t *testing.T) {
	scores, err := ParseScoreMap("```json\n{\"0\": 0.5}")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"0": 0.5}, scores)
}

func TestParseScoreMap_MalformedIsParseError(t *testing.T) {
	_, err := ParseScoreMap("the model rambles instead of answering")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Snippet, "the model rambles")
}

func TestParseScoreMap_SnippetIsBounded(t *testing.T) {
	long := strings.Repeat("x", 5000)
	_, err := ParseScoreMap(long)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Len(t, pe.Snippet, snippetLimit)
}

func TestParseScoreMap_NonNumericValue(t *testing.T) {
	_, err := ParseScoreMap(`{"0": "high"}`)
	require.Error(t, err)

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestParseScoreMap_NoRangeValidation(t *testing.T) {
	// Out-of-[0,1] values pass parsing; thresholding decides downstream.
	scores, err := ParseScoreMap(`{"0": 1.7, "1": -0.2}`)
	require.NoError(t, err)
	assert.Equal(t, 1.7, scores["0"])
	assert.Equal(t, -0.2, scores["1"])
}
