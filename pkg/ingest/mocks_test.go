package ingest

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Manual fakes
// ---------------------------------------------------------------------------

type staticAuth struct {
	session *services.Session
}

func (a staticAuth) CurrentUser(context.Context) *services.Session {
	return a.session
}

// memRepo is an in-memory Repository. The *Err fields inject failures.
type memRepo struct {
	mu      sync.Mutex
	records map[string]video.Record
	tick    int

	InsertErr error
	UpdateErr error
	FindErr   error

	inserts    atomic.Int32
	insertGate chan struct{}
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]video.Record)}
}

func (m *memRepo) clock() time.Time {
	m.tick++
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(m.tick) * time.Second)
}

func (m *memRepo) Insert(ctx context.Context, rec video.Record) (video.Record, error) {
	m.inserts.Add(1)
	if m.insertGate != nil {
		<-m.insertGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return video.Record{}, m.InsertErr
	}
	rec.ID = uuid.NewString()
	m.records[rec.ID] = rec.Clone()
	return rec, nil
}

func (m *memRepo) SelectByOwner(ctx context.Context, ownerID string, filter video.ListFilter) ([]video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []video.Record
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

func (m *memRepo) FindByID(ctx context.Context, ownerID, id string) (video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return video.Record{}, m.FindErr
	}
	r, ok := m.records[id]
	if !ok || r.OwnerID != ownerID {
		return video.Record{}, video.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memRepo) UpdateFields(ctx context.Context, ownerID, id string, u video.FieldUpdate) (video.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return video.Record{}, m.UpdateErr
	}
	r, ok := m.records[id]
	if !ok || r.OwnerID != ownerID {
		return video.Record{}, video.ErrNotFound
	}
	r.Apply(u, m.clock())
	m.records[id] = r
	return r.Clone(), nil
}

func (m *memRepo) DeleteByID(ctx context.Context, ownerID, id string) error {
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
func (m *memRepo) set(id string, fn func(*video.Record)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id]
	fn(&r)
	m.records[id] = r
}

func (m *memRepo) get(id string) (video.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type mockTrigger struct {
	ProcessFunc func(ctx context.Context, token string, req processing.TriggerRequest) (*processing.TriggerResponse, error)

	mu    sync.Mutex
	calls []processing.TriggerRequest
}

func (m *mockTrigger) Process(ctx context.Context, token string, req processing.TriggerRequest) (*processing.TriggerResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.ProcessFunc == nil {
		return &processing.TriggerResponse{}, nil
	}
	return m.ProcessFunc(ctx, token, req)
}

func (m *mockTrigger) Calls() []processing.TriggerRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]processing.TriggerRequest(nil), m.calls...)
}

type fixture struct {
	repo        *memRepo
	trigger     *mockTrigger
	stores      *video.Stores
	reconciler  *Reconciler
	coordinator *Coordinator
	library     *Library
	ctx         context.Context
}

func newFixture(session *services.Session) *fixture {
	auth := staticAuth{session: session}
	repo := newMemRepo()
	trigger := &mockTrigger{}
	stores := video.NewStores()
	rec := NewReconciler(auth, repo, stores, nil, 2)
	return &fixture{
		repo:        repo,
		trigger:     trigger,
		stores:      stores,
		reconciler:  rec,
		coordinator: NewCoordinator(auth, repo, trigger, stores, rec, nil, time.Second),
		library:     NewLibrary(auth, repo, stores),
		ctx:         context.Background(),
	}
}

var alice = &services.Session{UserID: "alice", Email: "alice@example.com", Token: "alice-token"}
