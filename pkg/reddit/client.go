// Package reddit provides a client for Reddit's public subreddit search.
package reddit

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

const defaultUserAgent = "pixwatch/1.0"

// Client defines the Reddit search operations.
type Client interface {
	// SearchSubreddit returns the newest posts in a subreddit matching query.
	SearchSubreddit(ctx context.Context, subreddit, query string, maxResults int) ([]model.Post, error)
}

// Listing is the outer envelope of a Reddit listing response.
type Listing struct {
	Data struct {
		Children []struct {
			Data Submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Submission is a single Reddit post.
type Submission struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// Option configures the Reddit client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithUserAgent overrides the User-Agent header. Reddit throttles
// anonymous default agents aggressively.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a Reddit client for the unauthenticated JSON API.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://www.reddit.com",
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchSubreddit(ctx context.Context, subreddit, query string, maxResults int) ([]model.Post, error) {
	if maxResults <= 0 {
		maxResults = 25
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "new")
	q.Set("limit", strconv.Itoa(maxResults))

	reqURL := c.baseURL + "/r/" + url.PathEscape(subreddit) + "/search.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("reddit: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, eris.Wrap(err, "reddit: unmarshal response")
	}

	return listing.Posts(maxResults), nil
}

// Posts converts the listing to posts, capped at max entries. The post
// text is the title and selftext joined so both reach the classifier.
func (l *Listing) Posts(max int) []model.Post {
	posts := make([]model.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if len(posts) >= max {
			break
		}
		sub := child.Data
		text := sub.Title
		if sub.Selftext != "" {
			text += "\n" + sub.Selftext
		}
		posts = append(posts, model.Post{
			Text:     text,
			Username: sub.Author,
			Source:   "reddit",
			Extra: map[string]any{
				"post_id":     sub.ID,
				"subreddit":   sub.Subreddit,
				"permalink":   sub.Permalink,
				"created_utc": sub.CreatedUTC,
			},
		})
	}
	return posts
}
