package akismet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(path string, form url.Values) (int, string)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		status, body := handler(r.URL.Path, r.PostForm)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CheckSpam(t *testing.T) {
	var got url.Values
	srv := newTestServer(t, func(path string, form url.Values) (int, string) {
		assert.Equal(t, "/comment-check", path)
		got = form
		if form.Get("comment_content") == "buy now" {
			return http.StatusOK, "true"
		}
		return http.StatusOK, "false"
	})

	c := New(srv.URL, "k-1", "https://example.com", srv.Client())

	spam, err := c.CheckSpam(context.Background(), Comment{
		UserIP:    "203.0.113.9",
		UserAgent: "test-agent",
		Content:   "buy now",
		Other:     map[string]string{"name": "Jax", "email": "j@x.com", "company": "Acme"},
	})
	require.NoError(t, err)
	assert.True(t, spam)

	assert.Equal(t, "k-1", got.Get("api_key"))
	assert.Equal(t, "https://example.com", got.Get("blog"))
	assert.Equal(t, "203.0.113.9", got.Get("user_ip"))
	assert.Equal(t, "test-agent", got.Get("user_agent"))
	assert.Equal(t, "Jax", got.Get("comment_author"))
	assert.Equal(t, "j@x.com", got.Get("comment_author_email"))
	assert.Equal(t, "Acme", got.Get("company"))

	spam, err = c.CheckSpam(context.Background(), Comment{Content: "hello"})
	require.NoError(t, err)
	assert.False(t, spam)
}

func TestClient_CheckSpamUnexpectedBody(t *testing.T) {
	srv := newTestServer(t, func(path string, form url.Values) (int, string) {
		return http.StatusOK, "invalid"
	})

	c := New(srv.URL, "bad", "https://example.com", srv.Client())
	_, err := c.CheckSpam(context.Background(), Comment{Content: "x"})
	assert.Error(t, err)
}

func TestClient_CheckSpamServerError(t *testing.T) {
	srv := newTestServer(t, func(path string, form url.Values) (int, string) {
		return http.StatusInternalServerError, "boom"
	})

	c := New(srv.URL, "k", "https://example.com", srv.Client())
	_, err := c.CheckSpam(context.Background(), Comment{Content: "x"})
	assert.Error(t, err)
}

func TestClient_VerifyKey(t *testing.T) {
	srv := newTestServer(t, func(path string, form url.Values) (int, string) {
		assert.Equal(t, "/verify-key", path)
		if form.Get("api_key") == "good" {
			return http.StatusOK, "valid"
		}
		return http.StatusOK, "invalid"
	})

	ok, err := New(srv.URL, "good", "https://example.com", srv.Client()).VerifyKey(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(srv.URL, "bad", "https://example.com", srv.Client()).VerifyKey(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
