package search

import (
	"context"
	"sort"
	"strings"

	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/video"
)

// Match weights for local ranking.
const (
	weightTitleOrSummary = 50
	weightKeyword        = 30
	weightVisual         = 20
	weightTranscription  = 10
	weightDescription    = 5
	maxScore             = 100
)

type RemoteSearcher interface {
	Search(ctx context.Context, token, query, platform string) ([]processing.SearchHit, error)
}

// RemoteBackend delegates ranking to the processing service.
type RemoteBackend struct {
	api RemoteSearcher
}

func NewRemoteBackend(api RemoteSearcher) *RemoteBackend {
	return &RemoteBackend{api: api}
}

func (b *RemoteBackend) Name() string { return "remote" }

func (b *RemoteBackend) Search(ctx context.Context, q Query) ([]Result, error) {
	var platform string
	if q.Platform != "" {
		platform = q.Platform.Lower()
	}
	hits, err := b.api.Search(ctx, q.Session.Token, q.Text, platform)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		p, ok := video.ParsePlatform(h.Platform)
		if !ok {
			p = video.PlatformUnknown
		}
		out = append(out, Result{
			ID:             h.ID,
			Title:          h.Title,
			URL:            h.URL,
			Platform:       p,
			RelevanceScore: h.RelevanceScore,
		})
	}
	sortByScore(out)
	return out, nil
}

type TextSearcher interface {
	FullTextSearch(ctx context.Context, ownerID, query string, filter video.ListFilter) ([]video.Record, error)
}

// LocalBackend matches the query in persistence and ranks the hits itself.
type LocalBackend struct {
	repo  TextSearcher
	limit uint64
}

func NewLocalBackend(repo TextSearcher, limit uint64) *LocalBackend {
	return &LocalBackend{repo: repo, limit: limit}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Search(ctx context.Context, q Query) ([]Result, error) {
	records, err := b.repo.FullTextSearch(ctx, q.Session.UserID, q.Text, video.ListFilter{Platform: q.Platform, Limit: b.limit})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(records))
	for _, rec := range records {
		score := Score(q.Text, rec)
		if score == 0 {
			continue
		}
		var title string
		if rec.Title != nil {
			title = *rec.Title
		}
		out = append(out, Result{
			ID:             rec.ID,
			Title:          title,
			URL:            rec.URL,
			Platform:       rec.Platform,
			RelevanceScore: score,
		})
	}
	sortByScore(out)
	return out, nil
}

// Score rates how well rec matches query, case-insensitively, in [0, 100].
func Score(query string, rec video.Record) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	contains := func(s *string) bool {
		return s != nil && strings.Contains(strings.ToLower(*s), q)
	}

	var a video.Analysis
	if rec.Analysis != nil {
		a = *rec.Analysis
	}

	score := 0
	if contains(rec.Title) || contains(&a.Summary) {
		score += weightTitleOrSummary
	}
	for _, kw := range a.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			score += weightKeyword
			break
		}
	}
	if contains(&a.VisualSummary) {
		score += weightVisual
	}
	if contains(&a.Transcription) {
		score += weightTranscription
	}
	if contains(rec.Description) {
		score += weightDescription
	}
	return float64(min(score, maxScore))
}

// sortByScore orders by descending score; ties keep their input order.
func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
}
