package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Asaad942/VidFold/pkg/ingest"
	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Manual fakes
// ---------------------------------------------------------------------------

// memVideos is an in-memory ingest.Repository. UpdateErr injects failures.
type memVideos struct {
	mu      sync.Mutex
	records map[string]video.Record

	UpdateErr error
}

func newMemVideos() *memVideos {
	return &memVideos{records: make(map[string]video.Record)}
}

func (m *memVideos) Insert(ctx context.Context, rec video.Record) (video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	m.records[rec.ID] = rec.Clone()
	return rec, nil
}

func (m *memVideos) SelectByOwner(ctx context.Context, ownerID string, filter video.ListFilter) ([]video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []video.Record{}
	for _, r := range m.records {
		if r.OwnerID == ownerID && (filter.Platform == "" || r.Platform == filter.Platform) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 {
		lo := min(int(filter.Offset), len(out))
		hi := min(lo+int(filter.Limit), len(out))
		out = out[lo:hi]
	}
	return out, nil
}

func (m *memVideos) FindByID(ctx context.Context, ownerID, id string) (video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.OwnerID != ownerID {
		return video.Record{}, video.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memVideos) UpdateFields(ctx context.Context, ownerID, id string, u video.FieldUpdate) (video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return video.Record{}, m.UpdateErr
	}
	r, ok := m.records[id]
	if !ok || r.OwnerID != ownerID {
		return video.Record{}, video.ErrNotFound
	}
	r.Apply(u, time.Now().UTC())
	m.records[id] = r
	return r.Clone(), nil
}

func (m *memVideos) DeleteByID(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.OwnerID != ownerID {
		return video.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// set overwrites a stored record as the processing service would.
func (m *memVideos) set(id string, fn func(*video.Record)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id]
	fn(&r)
	m.records[id] = r
}

type fakeTrigger struct {
	ProcessFunc func(ctx context.Context, token string, req processing.TriggerRequest) (*processing.TriggerResponse, error)
}

func (f *fakeTrigger) Process(ctx context.Context, token string, req processing.TriggerRequest) (*processing.TriggerResponse, error) {
	if f.ProcessFunc == nil {
		return &processing.TriggerResponse{}, nil
	}
	return f.ProcessFunc(ctx, token, req)
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

const callbackSecret = "callback-secret"

var alice = &services.Session{UserID: "alice", Email: "alice@example.com", Token: "alice-token"}

type harness struct {
	h       *Handlers
	repo    *memVideos
	trigger *fakeTrigger
	router  *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := services.ContextAuthenticator{}
	repo := newMemVideos()
	trigger := &fakeTrigger{}
	stores := video.NewStores()
	m := metrics.New()
	rec := ingest.NewReconciler(auth, repo, stores, m, 2)
	coord := ingest.NewCoordinator(auth, repo, trigger, stores, rec, m, time.Second)

	h := &Handlers{
		Coordinator:    coord,
		Reconciler:     rec,
		Library:        ingest.NewLibrary(auth, repo, stores),
		Stores:         stores,
		Metrics:        m,
		WatchInterval:  5 * time.Millisecond,
		WatchTimeout:   2 * time.Second,
		CallbackSecret: callbackSecret,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = coord.Wait(ctx)
	})
	return &harness{h: h, repo: repo, trigger: trigger, router: newRouter(h)}
}

// newRouter mounts the video routes behind a stand-in for the auth
// middleware that trusts the X-User header.
func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/api/videos/callback", h.HandleStatusCallback)

	videos := r.Group("/api/videos", func(c *gin.Context) {
		if c.GetHeader("X-User") == alice.UserID {
			c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), alice))
		}
		c.Next()
	})
	videos.POST("", h.SubmitVideo)
	videos.GET("", h.ListVideos)
	videos.POST("/reconcile", h.ReconcilePending)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// serve sends body as JSON with ctx as the request context and decodes the
// response envelope.
func (s *harness) serve(t *testing.T, ctx context.Context, method, path string, header http.Header, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *harness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return s.serve(t, context.Background(), method, path, http.Header{"X-User": {alice.UserID}}, body)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// seed stores a record for alice directly in the repository.
func (s *harness) seed(t *testing.T, p video.Platform, url string, status video.Status, age time.Duration) video.Record {
	t.Helper()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(-age)
	rec, err := s.repo.Insert(context.Background(), video.Record{
		OwnerID:   alice.UserID,
		URL:       url,
		Platform:  p,
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	})
	require.NoError(t, err)
	return rec
}
