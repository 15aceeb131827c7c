package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeRemotely(f *fixture, id string) {
	f.repo.set(id, func(r *video.Record) {
		r.Status = video.StatusComplete
		r.Title = video.StringPtr("Cat plays piano")
		r.Analysis = &video.Analysis{Summary: "a cat on a piano", Keywords: []string{"cat", "piano"}}
		r.UpdatedAt = r.UpdatedAt.Add(time.Hour)
	})
}

func TestReconcile_ErrorThenComplete(t *testing.T) {
	f := newFixture(alice)
	f.trigger.ProcessFunc = func(context.Context, string, processing.TriggerRequest) (*processing.TriggerResponse, error) {
		return nil, errors.New("connection refused")
	}

	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	assert.Equal(t, video.StatusPending, sub.Record.Status)
	assert.Equal(t, video.PlatformYouTube, sub.Record.Platform)

	failed := waitFor(t, sub)
	assert.Equal(t, video.StatusError, failed.Status)

	completeRemotely(f, sub.Record.ID)

	rec, err := f.reconciler.Reconcile(f.ctx, sub.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusComplete, rec.Status)
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, "a cat on a piano", rec.Analysis.Summary)
	assert.Equal(t, "https://youtu.be/abc123", rec.URL)
	assert.Equal(t, video.PlatformYouTube, rec.Platform)
	assert.True(t, sub.Record.CreatedAt.Equal(rec.CreatedAt))

	local, ok := f.stores.For("alice").Get(sub.Record.ID)
	require.True(t, ok)
	assert.Equal(t, video.StatusComplete, local.Status)
}

func TestReconcile_NeverTouchesImmutableFields(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	f.repo.set(sub.Record.ID, func(r *video.Record) {
		r.URL = "https://evil.example/other"
		r.Platform = video.PlatformTikTok
		r.CreatedAt = r.CreatedAt.Add(-24 * time.Hour)
		r.Description = video.StringPtr("remote description")
		r.Status = video.StatusProcessing
	})

	rec, err := f.reconciler.Reconcile(f.ctx, sub.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusProcessing, rec.Status)
	assert.Equal(t, sub.Record.URL, rec.URL)
	assert.Equal(t, video.PlatformYouTube, rec.Platform)
	assert.True(t, sub.Record.CreatedAt.Equal(rec.CreatedAt))
	assert.Nil(t, rec.Description)
	assert.Equal(t, "alice", rec.OwnerID)
}

func TestReconcile_AppendsMissingAndDropsDeleted(t *testing.T) {
	f := newFixture(alice)
	stored, err := f.repo.Insert(f.ctx, video.Record{OwnerID: "alice", URL: "https://youtu.be/x", Platform: video.PlatformYouTube, Status: video.StatusProcessing})
	require.NoError(t, err)

	rec, err := f.reconciler.Reconcile(f.ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, rec.ID)
	assert.Equal(t, 1, f.stores.For("alice").Len())

	require.NoError(t, f.repo.DeleteByID(f.ctx, "alice", stored.ID))
	_, err = f.reconciler.Reconcile(f.ctx, stored.ID)
	assert.ErrorIs(t, err, video.ErrNotFound)
	assert.Equal(t, 0, f.stores.For("alice").Len())
}

func TestReconcile_Errors(t *testing.T) {
	f := newFixture(nil)
	_, err := f.reconciler.Reconcile(f.ctx, "x")
	assert.ErrorIs(t, err, video.ErrUnauthenticated)

	f = newFixture(alice)
	f.repo.FindErr = errors.New("timeout")
	_, err = f.reconciler.Reconcile(f.ctx, "x")
	assert.ErrorIs(t, err, video.ErrPersistence)
}

func TestApplyReport(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	_, err = f.reconciler.ApplyReport(f.ctx, processing.StatusEvent{VideoID: sub.Record.ID, Status: "done"})
	assert.ErrorIs(t, err, video.ErrValidation)

	rec, err := f.reconciler.ApplyReport(f.ctx, processing.StatusEvent{
		VideoID: sub.Record.ID,
		UserID:  "alice",
		Status:  "completed",
		Title:   "Piano cat",
		Analysis: &processing.AnalysisPayload{
			SearchSummary: "cat plays",
			Keywords:      []string{"cat"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, video.StatusComplete, rec.Status)
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, []string{"cat"}, rec.Analysis.Keywords)

	stored, _ := f.repo.get(sub.Record.ID)
	assert.Equal(t, video.StatusComplete, stored.Status)

	_, err = f.reconciler.ApplyReport(f.ctx, processing.StatusEvent{VideoID: sub.Record.ID, UserID: "bob", Status: "error"})
	assert.ErrorIs(t, err, video.ErrNotFound)
}

func TestReconcilePending(t *testing.T) {
	f := newFixture(alice)
	var ids []string
	for _, u := range []string{"https://youtu.be/1", "https://youtu.be/2", "https://youtu.be/3"} {
		sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: u})
		require.NoError(t, err)
		ids = append(ids, sub.Record.ID)
	}
	require.NoError(t, f.coordinator.Wait(f.ctx))

	completeRemotely(f, ids[0])
	require.NoError(t, f.repo.DeleteByID(f.ctx, "alice", ids[2]))

	refreshed, err := f.reconciler.ReconcilePending(f.ctx)
	require.NoError(t, err)
	assert.Len(t, refreshed, 2)

	store := f.stores.For("alice")
	assert.Equal(t, []string{ids[1]}, store.Unsettled())
	assert.Equal(t, 2, store.Len())
}

func TestWatch_ReturnsOnceSettled(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	go func() {
		time.Sleep(20 * time.Millisecond)
		completeRemotely(f, sub.Record.ID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.reconciler.Watch(ctx, "alice", 5*time.Millisecond))

	local, _ := f.stores.For("alice").Get(sub.Record.ID)
	assert.Equal(t, video.StatusComplete, local.Status)
}

func TestWatch_StopsOnContext(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.reconciler.Watch(ctx, "alice", 5*time.Millisecond), context.DeadlineExceeded)
}

func TestWatchPending(t *testing.T) {
	f := newFixture(alice)
	settled := seed(t, f, "alice", video.PlatformYouTube, "https://youtu.be/done", time.Hour)
	_, err := f.library.Load(f.ctx)
	require.NoError(t, err)

	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	go func() {
		time.Sleep(20 * time.Millisecond)
		completeRemotely(f, sub.Record.ID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	records, err := f.reconciler.WatchPending(ctx, 5*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sub.Record.ID, records[0].ID)
	assert.Equal(t, video.StatusComplete, records[0].Status)
	assert.NotEqual(t, settled.ID, records[0].ID)
}

func TestWatchPending_CutShort(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	records, err := f.reconciler.WatchPending(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, records, 1)
	assert.Equal(t, video.StatusPending, records[0].Status)

	_, err = newFixture(nil).reconciler.WatchPending(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, video.ErrUnauthenticated)
}

func TestSweep_ReconcilesAllOwners(t *testing.T) {
	f := newFixture(alice)
	sub, err := f.coordinator.Submit(f.ctx, SubmitInput{URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	waitFor(t, sub)
	completeRemotely(f, sub.Record.ID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.reconciler.Sweep(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		rec, _ := f.stores.For("alice").Get(sub.Record.ID)
		return rec.Status == video.StatusComplete
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestApplyTriggerOutcome_IgnoresEmptyResponse(t *testing.T) {
	f := newFixture(&services.Session{UserID: "alice"})
	stored, err := f.repo.Insert(f.ctx, video.Record{OwnerID: "alice", URL: "https://youtu.be/x", Platform: video.PlatformYouTube, Status: video.StatusPending})
	require.NoError(t, err)
	f.stores.For("alice").Append(stored)

	rec := f.reconciler.ApplyTriggerOutcome(f.ctx, TriggerOutcome{OwnerID: "alice", VideoID: stored.ID, Response: &processing.TriggerResponse{}})
	assert.Equal(t, video.StatusPending, rec.Status)
	assert.True(t, stored.UpdatedAt.Equal(rec.UpdatedAt))
}
