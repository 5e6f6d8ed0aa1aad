// Package ports defines the interfaces between the ranking core and the
// outside world: the discussion platform, the image host, and the chart
// renderer. The core treats everything these interfaces return as fully
// materialized input; retry and pagination concerns live behind them.
package ports

import (
	"context"
	"time"

	"github.com/liquidfun/stackr/internal/domain"
)

// Post is one submission in a series, in the shape the core needs:
// identity, title for series matching, and creation time for round ordering
// and reset-cadence checks.
type Post struct {
	ID      string
	Title   string
	Created time.Time
}

// Comment is a single reply under a post. Author is empty when the
// platform reports the author as deleted or unavailable.
type Comment struct {
	ID     string
	Author string
	Body   string
}

// Client is the discussion-platform boundary. Implementations own
// authentication, pacing, and pagination; every method blocks until the
// result is complete.
type Client interface {
	// Me returns the username the client is authenticated as.
	Me() string

	// PostsByAuthor returns the author's recent posts, newest first.
	PostsByAuthor(ctx context.Context, author string) ([]Post, error)

	// Comments returns the post's comment tree flattened to a single
	// ordered list.
	Comments(ctx context.Context, postID string) ([]Comment, error)

	// Reply posts a new top-level comment and returns it.
	Reply(ctx context.Context, postID, body string) (Comment, error)

	// EditComment replaces the body of a comment the client authored.
	EditComment(ctx context.Context, commentID, body string) error

	// SendMessage sends a direct message to a user.
	SendMessage(ctx context.Context, to, subject, body string) error
}

// ImageHost uploads a rendered chart and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, png []byte, title string) (string, error)
}

// ChartRenderer renders a score-history chart for the given standings over
// the given number of rounds, returning PNG bytes.
type ChartRenderer interface {
	RenderHistory(standings []domain.Standing, rounds int) ([]byte, error)
}
