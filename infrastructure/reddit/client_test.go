package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidfun/stackr/internal/config"
	"github.com/liquidfun/stackr/internal/ports"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), config.RedditAPI{Username: "stackrbot"},
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestClient_Me(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	assert.Equal(t, "stackrbot", client.Me())
}

func TestClient_PostsByAuthor(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/liquidfun/submitted", r.URL.Path)
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		w.Write([]byte(`{
			"kind": "Listing",
			"data": {"children": [
				{"kind": "t3", "data": {"id": "abc", "title": "Streak Stacker #2", "created_utc": 1756123200}},
				{"kind": "t3", "data": {"id": "def", "title": "Streak Stacker #1", "created_utc": 1756036800}},
				{"kind": "t1", "data": {"id": "not-a-post"}}
			]}
		}`))
	}))

	posts, err := client.PostsByAuthor(context.Background(), "liquidfun")

	require.NoError(t, err)
	require.Len(t, posts, 2, "non-submission children are skipped")
	assert.Equal(t, ports.Post{
		ID:      "abc",
		Title:   "Streak Stacker #2",
		Created: time.Unix(1756123200, 0).UTC(),
	}, posts[0])
	assert.Equal(t, "def", posts[1].ID)
}

func TestClient_Comments(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/abc", r.URL.Path)
		w.Write([]byte(`[
			{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": "abc"}}]}},
			{"kind": "Listing", "data": {"children": [
				{"kind": "t1", "data": {
					"name": "t1_c1", "author": "alice", "body": "got a 700",
					"replies": {"kind": "Listing", "data": {"children": [
						{"kind": "t1", "data": {"name": "t1_c2", "author": "bob", "body": "nice one", "replies": ""}}
					]}}
				}},
				{"kind": "t1", "data": {"name": "t1_c3", "author": "[deleted]", "body": "[removed]", "replies": ""}},
				{"kind": "more", "data": {"count": 12}}
			]}}
		]`))
	}))

	comments, err := client.Comments(context.Background(), "abc")

	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, ports.Comment{ID: "t1_c1", Author: "alice", Body: "got a 700"}, comments[0])
	assert.Equal(t, "bob", comments[1].Author, "nested replies are flattened depth-first")
	assert.Empty(t, comments[2].Author, "deleted authors are reported as empty")
}

func TestClient_CommentsSinglePage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"kind": "Listing", "data": {"children": []}}]`))
	}))

	comments, err := client.Comments(context.Background(), "abc")

	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestClient_Reply(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/comment", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_abc", r.PostForm.Get("thing_id"))
		assert.Equal(t, "leaderboard body", r.PostForm.Get("text"))
		w.Write([]byte(`{"json": {"data": {"things": [
			{"kind": "t1", "data": {"name": "t1_new", "body": "leaderboard body"}}
		]}}}`))
	}))

	comment, err := client.Reply(context.Background(), "abc", "leaderboard body")

	require.NoError(t, err)
	assert.Equal(t, "t1_new", comment.ID)
	assert.Equal(t, "stackrbot", comment.Author)
}

func TestClient_EditComment(t *testing.T) {
	var gotForm map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/editusertext", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"thing_id": r.PostForm.Get("thing_id"),
			"text":     r.PostForm.Get("text"),
		}
		w.Write([]byte(`{}`))
	}))

	err := client.EditComment(context.Background(), "t1_c9", "updated body")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"thing_id": "t1_c9", "text": "updated body"}, gotForm)
}

func TestClient_SendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/compose", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "liquidfun", r.PostForm.Get("to"))
		assert.Equal(t, "stats", r.PostForm.Get("subject"))
		w.Write([]byte(`{}`))
	}))

	assert.NoError(t, client.SendMessage(context.Background(), "liquidfun", "stats", "csv"))
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))

	_, err := client.PostsByAuthor(context.Background(), "liquidfun")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_UserAgentHeader(t *testing.T) {
	var gotAgent string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	}))

	_, err := client.PostsByAuthor(context.Background(), "liquidfun")

	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent+" (by /u/stackrbot)", gotAgent)
}

func TestClient_UserAgentOverride(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(context.Background(),
		config.RedditAPI{Username: "stackrbot", UserAgent: "custom-agent/1.0"},
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	_, err = client.PostsByAuthor(context.Background(), "liquidfun")

	require.NoError(t, err)
	assert.Equal(t, "custom-agent/1.0", gotAgent)
}
