// Package akismet is a minimal Akismet REST client covering comment-check
// and verify-key.
package akismet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://rest.akismet.com/1.1"

// Comment is the classification payload
type Comment struct {
	UserIP    string
	UserAgent string
	Content   string
	// Other carries additional fields keyed by form field id
	Other map[string]string
}

// fieldParams maps common form field ids to their Akismet parameter names.
var fieldParams = map[string]string{
	"name":    "comment_author",
	"email":   "comment_author_email",
	"url":     "comment_author_url",
	"website": "comment_author_url",
}

type Client struct {
	endpoint string
	key      string
	blog     string
	http     *http.Client
}

// New creates a client for one API key. blog is the site URL registered with the key.
func New(endpoint, key, blog string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		key:      key,
		blog:     blog,
		http:     httpClient,
	}
}

// CheckSpam reports whether Akismet classifies the comment as spam.
func (c *Client) CheckSpam(ctx context.Context, comment Comment) (bool, error) {
	form := url.Values{}
	form.Set("api_key", c.key)
	form.Set("blog", c.blog)
	form.Set("comment_type", "contact-form")
	if comment.UserIP != "" {
		form.Set("user_ip", comment.UserIP)
	}
	if comment.UserAgent != "" {
		form.Set("user_agent", comment.UserAgent)
	}
	if comment.Content != "" {
		form.Set("comment_content", comment.Content)
	}
	for field, value := range comment.Other {
		param, ok := fieldParams[field]
		if !ok {
			param = field
		}
		form.Set(param, value)
	}

	body, resp, err := c.post(ctx, "/comment-check", form)
	if err != nil {
		return false, err
	}

	switch body {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("akismet comment-check: unexpected response %q (%s)", body, resp.Header.Get("X-akismet-debug-help"))
	}
}

// VerifyKey reports whether the API key is valid for the blog.
func (c *Client) VerifyKey(ctx context.Context) (bool, error) {
	form := url.Values{}
	form.Set("api_key", c.key)
	form.Set("blog", c.blog)

	body, _, err := c.post(ctx, "/verify-key", form)
	if err != nil {
		return false, err
	}

	switch body {
	case "valid":
		return true, nil
	case "invalid":
		return false, nil
	default:
		return false, fmt.Errorf("akismet verify-key: unexpected response %q", body)
	}
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (string, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("akismet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("akismet: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", nil, fmt.Errorf("akismet: read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("akismet: %s returned status %d", path, resp.StatusCode)
	}
	return strings.TrimSpace(string(raw)), resp, nil
}
