// Package reddit implements the platform boundary against the Reddit JSON
// API. The adapter owns authentication and request pacing; the core never
// sees a rate limit or an OAuth token.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/liquidfun/stackr/internal/config"
	"github.com/liquidfun/stackr/internal/ports"
)

var _ ports.Client = (*Client)(nil)

const (
	tokenURL = "https://www.reddit.com/api/v1/access_token"
	apiBase  = "https://oauth.reddit.com"

	// Reddit allows 60 requests per minute for script apps; pace at one
	// per second with a small burst for comment-tree fans.
	requestsPerSecond = 1
	requestBurst      = 5

	defaultUserAgent = "linux:stackr:0.2"
)

// Client is an authenticated Reddit API client for a script app, using the
// OAuth2 password-credentials grant and a token bucket to pace requests.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	username  string
	userAgent string
	base      string
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = base }
}

// WithHTTPClient overrides the underlying HTTP client, bypassing OAuth.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New authenticates against Reddit with the configured script-app
// credentials and returns a ready client.
func New(ctx context.Context, api config.RedditAPI, opts ...Option) (*Client, error) {
	userAgent := api.UserAgent
	if userAgent == "" {
		// Reddit asks script apps to identify a contact in the user agent.
		userAgent = defaultUserAgent
		if api.Username != "" {
			userAgent = fmt.Sprintf("%s (by /u/%s)", defaultUserAgent, api.Username)
		}
	}

	c := &Client{
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		username:  api.Username,
		userAgent: userAgent,
		base:      apiBase,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		conf := &oauth2.Config{
			ClientID:     api.ClientID,
			ClientSecret: api.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		token, err := conf.PasswordCredentialsToken(ctx, api.Username, api.Password)
		if err != nil {
			return nil, fmt.Errorf("reddit authentication failed: %w", err)
		}
		c.http = conf.Client(ctx, token)
		c.http.Timeout = 30 * time.Second
	}
	return c, nil
}

// Me returns the username the client is authenticated as.
func (c *Client) Me() string { return c.username }

// do performs one paced API request and decodes the JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reddit %s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// thing is the envelope Reddit wraps every API object in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
}

type postData struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	CreatedUTC float64 `json:"created_utc"`
}

type commentData struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
	Name   string `json:"name"`

	// RawReplies is either an empty string or a nested listing; decoded
	// manually in flatten.
	RawReplies json.RawMessage `json:"replies"`
}

// PostsByAuthor returns the author's newest submissions.
func (c *Client) PostsByAuthor(ctx context.Context, author string) ([]ports.Post, error) {
	var envelope thing
	path := fmt.Sprintf("/user/%s/submitted?sort=new&limit=100&raw_json=1", url.PathEscape(author))
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	var listing listingData
	if err := json.Unmarshal(envelope.Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode submissions listing: %w", err)
	}

	posts := make([]ports.Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
		posts = append(posts, ports.Post{
			ID:      p.ID,
			Title:   p.Title,
			Created: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

// Comments returns a post's comment tree flattened to a single list, in
// the order the API presents it.
func (c *Client) Comments(ctx context.Context, postID string) ([]ports.Comment, error) {
	var pages []thing
	path := fmt.Sprintf("/comments/%s?limit=500&raw_json=1", url.PathEscape(postID))
	if err := c.do(ctx, http.MethodGet, path, nil, &pages); err != nil {
		return nil, err
	}
	// The endpoint returns [post listing, comment listing].
	if len(pages) < 2 {
		return nil, nil
	}
	var listing listingData
	if err := json.Unmarshal(pages[1].Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode comment listing: %w", err)
	}
	var comments []ports.Comment
	if err := flatten(listing.Children, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// flatten walks a comment listing depth-first, appending every t1 comment.
// "more" stubs are skipped; the bot's own comment is always a top-level
// reply and scores overwhelmingly sit in the first 500 comments.
func flatten(children []thing, out *[]ports.Comment) error {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			return fmt.Errorf("failed to decode comment: %w", err)
		}
		author := cd.Author
		if author == "[deleted]" {
			author = ""
		}
		*out = append(*out, ports.Comment{ID: cd.Name, Author: author, Body: cd.Body})

		if len(cd.RawReplies) > 0 && cd.RawReplies[0] == '{' {
			var replies thing
			if err := json.Unmarshal(cd.RawReplies, &replies); err != nil {
				return fmt.Errorf("failed to decode replies: %w", err)
			}
			var nested listingData
			if err := json.Unmarshal(replies.Data, &nested); err != nil {
				return fmt.Errorf("failed to decode reply listing: %w", err)
			}
			if err := flatten(nested.Children, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reply posts a new top-level comment under a post.
func (c *Client) Reply(ctx context.Context, postID, body string) (ports.Comment, error) {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + postID},
		"text":     {body},
	}
	var resp struct {
		JSON struct {
			Data struct {
				Things []thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/comment", form, &resp); err != nil {
		return ports.Comment{}, err
	}
	for _, t := range resp.JSON.Data.Things {
		if t.Kind != "t1" {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(t.Data, &cd); err != nil {
			return ports.Comment{}, fmt.Errorf("failed to decode posted comment: %w", err)
		}
		return ports.Comment{ID: cd.Name, Author: c.username, Body: cd.Body}, nil
	}
	return ports.Comment{ID: "", Author: c.username, Body: body}, nil
}

// EditComment replaces the body of one of the client's own comments.
// commentID is the fullname (t1_...) returned by Comments or Reply.
func (c *Client) EditComment(ctx context.Context, commentID, body string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {commentID},
		"text":     {body},
	}
	return c.do(ctx, http.MethodPost, "/api/editusertext", form, nil)
}

// SendMessage sends a direct message.
func (c *Client) SendMessage(ctx context.Context, to, subject, body string) error {
	form := url.Values{
		"api_type": {"json"},
		"to":       {to},
		"subject":  {subject},
		"text":     {body},
	}
	return c.do(ctx, http.MethodPost, "/api/compose", form, nil)
}
