// Package search runs ranked searches over a user's saved videos.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	log "github.com/sirupsen/logrus"
)

// Result is one lightweight ranked hit.
type Result struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Platform       video.Platform `json:"platform"`
	RelevanceScore float64        `json:"relevanceScore"`
}

// Query is what a backend receives. Platform is empty for all platforms.
type Query struct {
	Session  *services.Session
	Text     string
	Platform video.Platform
}

// Backend executes a non-empty query.
type Backend interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

type Authenticator interface {
	CurrentUser(ctx context.Context) *services.Session
}

// Client validates queries and dispatches them to a backend.
type Client struct {
	auth    Authenticator
	backend Backend
	metrics *metrics.Metrics
}

func NewClient(auth Authenticator, backend Backend, m *metrics.Metrics) *Client {
	return &Client{auth: auth, backend: backend, metrics: m}
}

// Search returns ranked results for query. A blank query returns an empty
// result without contacting the backend. platform may be empty or "All".
func (c *Client) Search(ctx context.Context, query, platform string) ([]Result, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return []Result{}, nil
	}

	var p video.Platform
	if platform = strings.TrimSpace(platform); platform != "" && !strings.EqualFold(platform, video.FilterAll) {
		parsed, ok := video.ParsePlatform(platform)
		if !ok {
			return nil, video.NewValidationError("platform", "unknown platform "+platform)
		}
		p = parsed
	}

	sess := c.auth.CurrentUser(ctx)
	if sess == nil {
		return nil, video.ErrUnauthenticated
	}

	results, err := c.backend.Search(ctx, Query{Session: sess, Text: text, Platform: p})
	if err != nil {
		c.metrics.Search(c.backend.Name(), "error")
		log.Errorf("Search: %s backend failed for user %s: %v", c.backend.Name(), sess.UserID, err)
		if errors.Is(err, video.ErrUnauthenticated) {
			return nil, err
		}
		return nil, &video.SearchError{Query: text, Err: err}
	}
	if results == nil {
		results = []Result{}
	}
	c.metrics.Search(c.backend.Name(), "ok")
	return results, nil
}
