// Package imgur uploads rendered charts to Imgur via anonymous client-ID
// authentication.
package imgur

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liquidfun/stackr/internal/ports"
)

var _ ports.ImageHost = (*Client)(nil)

const uploadURL = "https://api.imgur.com/3/image"

// Client uploads images with an Imgur application client ID.
type Client struct {
	clientID string
	http     *http.Client
	endpoint string
}

// Option configures the client.
type Option func(*Client)

// WithEndpoint overrides the upload endpoint, used by tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the given application client ID.
func New(clientID string, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		http:     &http.Client{Timeout: 60 * time.Second},
		endpoint: uploadURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts the PNG and returns its public link.
func (c *Client) Upload(ctx context.Context, png []byte, title string) (string, error) {
	form := url.Values{
		"image": {base64.StdEncoding.EncodeToString(png)},
		"type":  {"base64"},
		"title": {title},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.clientID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgur upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("imgur upload: status %d: %s", resp.StatusCode, payload)
	}

	var decoded struct {
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode imgur response: %w", err)
	}
	if !decoded.Success || decoded.Data.Link == "" {
		return "", fmt.Errorf("imgur upload rejected")
	}
	return decoded.Data.Link, nil
}
