package detector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pixwatch/pixwatch/pkg/openrouter"
)

var tagRe = regexp.MustCompile(`<(\d+)>`)

// promptIndices extracts the global indices tagged in a rendered
// prompt's data section, which follows the template's final "INPUT:"
// marker. The template body itself contains literal example tags and
// must not be scanned.
func promptIndices(prompt string) []int {
	data := prompt
	if i := strings.LastIndex(prompt, "INPUT:"); i >= 0 {
		data = prompt[i:]
	}
	var indices []int
	for _, m := range tagRe.FindAllStringSubmatch(data, -1) {
		idx, _ := strconv.Atoi(m[1])
		indices = append(indices, idx)
	}
	return indices
}

// chatEnvelope wraps answer text in an OpenRouter chat completion response.
func chatEnvelope(t *testing.T, content string) string {
	t.Helper()
	env := map[string]any{
		"id": "gen-test",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 20},
	}
	out, err := json.Marshal(env)
	require.NoError(t, err)
	return string(out)
}

// scoreBody renders a JSON score map for the given indices.
func scoreBody(indices []int, score func(int) float64) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q: %g", strconv.Itoa(idx), score(idx))
	}
	sb.WriteByte('}')
	return sb.String()
}

// batchHandler decodes the chat request and lets the test answer per
// batch, keyed by the batch's first global index.
func batchHandler(t *testing.T, respond func(w http.ResponseWriter, firstIndex int, indices []int)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req openrouter.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)

		indices := promptIndices(req.Messages[0].Content)
		require.NotEmpty(t, indices)

		w.Header().Set("Content-Type", "application/json")
		respond(w, indices[0], indices)
	}
}

func testConfig() Config {
	return Config{
		Model:         "test-model",
		BatchSize:     10,
		MaxConcurrent: 2,
		MaxRetries:    1,
		Threshold:     0.7,
	}
}

// testClient returns a client pointed at nothing, for tests that never
// reach the network.
func testClient(t *testing.T) openrouter.Client {
	t.Helper()
	return openrouter.NewClient("test-key", openrouter.WithBaseURL("http://127.0.0.1:0"))
}

func newDetector(t *testing.T, srv *httptest.Server, cfg Config) *Detector {
	t.Helper()
	client := openrouter.NewClient("test-key", openrouter.WithBaseURL(srv.URL))
	d, err := New(client, cfg)
	require.NoError(t, err)
	return d
}
