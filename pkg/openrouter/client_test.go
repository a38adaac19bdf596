package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixwatch/pixwatch/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantAnswer    string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "gen-123",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"0\": 0.9}"}}],
				"usage": {"prompt_tokens": 120, "completion_tokens": 8}
			}`,
			wantAnswer: `{"0": 0.9}`,
		},
		{
			name:          "rate_limit_is_transient",
			status:        http.StatusTooManyRequests,
			body:          `{"error": "rate limit exceeded"}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:          "server_error_is_transient",
			status:        http.StatusBadGateway,
			body:          `{"error": "upstream unavailable"}`,
			wantErr:       "unexpected status 502",
			wantTransient: true,
		},
		{
			name:    "bad_request_is_permanent",
			status:  http.StatusBadRequest,
			body:    `{"error": "unknown model"}`,
			wantErr: "unexpected status 400",
		},
		{
			name:    "malformed_envelope",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages: []Message{{Role: "user", Content: "score these"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, "gen-123", resp.ID)
			assert.Equal(t, tt.wantAnswer, resp.AnswerText())
			assert.Equal(t, 8, resp.Usage.CompletionTokens)
		})
	}
}

func TestChatCompletion_DefaultModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "meta-llama/llama-3.3-70b-instruct", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}],"usage":{}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("meta-llama/llama-3.3-70b-instruct"))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
}

func TestChatCompletion_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestAnswerText_NoChoices(t *testing.T) {
	resp := &ChatCompletionResponse{}
	assert.Empty(t, resp.AnswerText())
}
