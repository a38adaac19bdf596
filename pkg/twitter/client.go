// Package twitter provides a client for the Twitter v2 recent search API.
package twitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pixwatch/pixwatch/internal/model"
	"github.com/pixwatch/pixwatch/internal/resilience"
)

// Client defines the Twitter search operations.
type Client interface {
	// SearchRecent returns posts matching the query from the last seven days.
	SearchRecent(ctx context.Context, query string, maxResults int) ([]model.Post, error)
}

// Tweet is a single tweet from the search response.
type Tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

// User is an expanded author record.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Location string `json:"location"`
}

// SearchResponse is the parsed recent search response.
type SearchResponse struct {
	Data     []Tweet `json:"data"`
	Includes struct {
		Users []User `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// Option configures the Twitter client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	bearerToken string
	baseURL     string
	http        *http.Client
}

// NewClient creates a Twitter API v2 client authenticated with a bearer token.
func NewClient(bearerToken string, opts ...Option) Client {
	c := &httpClient{
		bearerToken: bearerToken,
		baseURL:     "https://api.twitter.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchRecent(ctx context.Context, query string, maxResults int) ([]model.Post, error) {
	if maxResults < 10 {
		maxResults = 10 // API minimum
	}
	if maxResults > 100 {
		maxResults = 100
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("tweet.fields", "author_id,created_at")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "name,username,location")

	reqURL := c.baseURL + "/2/tweets/search/recent?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "twitter: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "twitter: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "twitter: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("twitter: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "twitter: unmarshal response")
	}

	return result.Posts(), nil
}

// Posts converts the response to posts, joining expanded authors by id.
func (r *SearchResponse) Posts() []model.Post {
	users := make(map[string]User, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = u
	}

	posts := make([]model.Post, 0, len(r.Data))
	for _, tw := range r.Data {
		u := users[tw.AuthorID]
		posts = append(posts, model.Post{
			Text:     tw.Text,
			Username: u.Username,
			Name:     u.Name,
			Location: u.Location,
			Source:   "twitter",
			Extra: map[string]any{
				"tweet_id":   tw.ID,
				"created_at": tw.CreatedAt,
			},
		})
	}
	return posts
}
