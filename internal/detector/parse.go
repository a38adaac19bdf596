package detector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	errMissingPlaceholder   = eris.New("detector: prompt template is missing the DATA_PLACEHOLDER marker")
	errDuplicatePlaceholder = eris.New("detector: prompt template contains more than one DATA_PLACEHOLDER marker")
)

// snippetLimit bounds how much of a bad response a ParseError carries.
const snippetLimit = 200

// ParseError reports a model response that was not a valid score map.
// It is distinct from a transport failure and carries a bounded prefix
// of the cleaned response for diagnosis.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse score map: %v (response: %q)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseScoreMap extracts the index→score mapping from the model's answer
// text, tolerating a markdown code-fence wrapper. Scores are not range
// checked here; thresholding happens downstream.
func ParseScoreMap(text string) (map[string]float64, error) {
	cleaned := stripFences(text)

	var scores map[string]float64
	if err := json.Unmarshal([]byte(cleaned), &scores); err != nil {
		snippet := cleaned
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		return nil, &ParseError{Snippet: snippet, Err: err}
	}
	return scores, nil
}

// stripFences removes a leading code fence line (optionally annotated,
// e.g. "```json") and, when present, the trailing bare closing fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	lines = lines[1:]

	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last >= 0 && strings.TrimSpace(lines[last]) == "```" {
		lines = lines[:last]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
