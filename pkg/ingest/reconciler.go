package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/video"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Reconciler merges authoritative state into the owner stores. It reflects
// what persistence and the processor report and does not police transitions.
type Reconciler struct {
	auth    Authenticator
	repo    Repository
	stores  *video.Stores
	metrics *metrics.Metrics

	concurrency int
	now         func() time.Time
}

func NewReconciler(auth Authenticator, repo Repository, stores *video.Stores, m *metrics.Metrics, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		auth:        auth,
		repo:        repo,
		stores:      stores,
		metrics:     m,
		concurrency: concurrency,
		now:         utcNow,
	}
}

// ApplyTriggerOutcome records the result of a processing trigger. A failed
// trigger marks the record as error; a successful one merges any metadata the
// service returned. Persistence is best effort either way and the local
// record is never dropped.
func (r *Reconciler) ApplyTriggerOutcome(ctx context.Context, o TriggerOutcome) video.Record {
	store := r.stores.For(o.OwnerID)

	var u video.FieldUpdate
	if o.Err != nil {
		log.Warnf("ApplyTriggerOutcome: processing trigger failed for video %s: %v", o.VideoID, o.Err)
		u.Status = video.StatusPtr(video.StatusError)
		u.ClearAnalysis = true
	} else if o.Response != nil {
		u = o.Response.Update()
	}

	if u.Empty() {
		rec, _ := store.Get(o.VideoID)
		return rec
	}

	rec, ok := store.Update(o.VideoID, func(rec *video.Record) {
		rec.Apply(u, r.now())
	})
	if !ok {
		log.Debugf("ApplyTriggerOutcome: video %s is no longer in the local store", o.VideoID)
	}

	// Best effort update
	persisted, err := r.repo.UpdateFields(ctx, o.OwnerID, o.VideoID, u)
	if err != nil {
		log.Warnf("ApplyTriggerOutcome: failed to persist status for video %s: %v", o.VideoID, err)
		r.metrics.Reconcile("persist_failed")
		return rec
	}
	merged, _ := r.merge(o.OwnerID, persisted, false)
	return merged
}

// Reconcile refreshes one record of the current user from persistence.
func (r *Reconciler) Reconcile(ctx context.Context, id string) (video.Record, error) {
	sess, err := currentOwner(ctx, r.auth)
	if err != nil {
		return video.Record{}, err
	}
	return r.ReconcileFor(ctx, sess.UserID, id)
}

// ReconcileFor refreshes one record of ownerID. Only status, title, analysis
// and updatedAt of the local copy change; a record missing locally is added.
// A record deleted from persistence is dropped locally and reported as not found.
func (r *Reconciler) ReconcileFor(ctx context.Context, ownerID, id string) (video.Record, error) {
	remote, err := r.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			r.stores.For(ownerID).Remove(id)
			r.metrics.Reconcile("not_found")
			return video.Record{}, err
		}
		r.metrics.Reconcile("error")
		return video.Record{}, persistenceErr("find", err)
	}

	rec, _ := r.merge(ownerID, remote, true)
	r.metrics.Reconcile("ok")
	return rec, nil
}

// ApplyReport persists a processor status report and merges the stored
// result into the owner's store.
func (r *Reconciler) ApplyReport(ctx context.Context, ev processing.StatusEvent) (video.Record, error) {
	if err := ev.Validate(); err != nil {
		return video.Record{}, err
	}
	if ev.Error != "" {
		log.Warnf("ApplyReport: processor reported failure for video %s: %s", ev.VideoID, ev.Error)
	}

	persisted, err := r.repo.UpdateFields(ctx, ev.UserID, ev.VideoID, ev.Update())
	if err != nil {
		return video.Record{}, persistenceErr("update", err)
	}

	rec, _ := r.merge(ev.UserID, persisted, true)
	log.Infof("ApplyReport: video %s is now %s", rec.ID, rec.Status)
	return rec, nil
}

// ReconcilePending refreshes every unsettled record of the current user.
func (r *Reconciler) ReconcilePending(ctx context.Context) ([]video.Record, error) {
	sess, err := currentOwner(ctx, r.auth)
	if err != nil {
		return nil, err
	}
	return r.reconcileOwner(ctx, sess.UserID)
}

func (r *Reconciler) reconcileOwner(ctx context.Context, ownerID string) ([]video.Record, error) {
	ids := r.stores.For(ownerID).Unsettled()
	out := make([]video.Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := r.ReconcileFor(gctx, ownerID, id)
			if errors.Is(err, video.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refreshed := out[:0]
	for _, rec := range out {
		if rec.ID != "" {
			refreshed = append(refreshed, rec)
		}
	}
	return refreshed, nil
}

// Watch polls the owner's unsettled records until all of them are settled or
// ctx ends.
func (r *Reconciler) Watch(ctx context.Context, ownerID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if len(r.stores.For(ownerID).Unsettled()) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := r.reconcileOwner(ctx, ownerID); err != nil {
			log.Warnf("Watch: reconcile for user %s failed: %v", ownerID, err)
		}
	}
}

// WatchPending watches the current user's unsettled records until they all
// settle or ctx ends, and returns them as they stand at that point. The ctx
// error is returned alongside the records when the watch was cut short.
func (r *Reconciler) WatchPending(ctx context.Context, interval time.Duration) ([]video.Record, error) {
	sess, err := currentOwner(ctx, r.auth)
	if err != nil {
		return nil, err
	}
	store := r.stores.For(sess.UserID)
	ids := store.Unsettled()

	werr := r.Watch(ctx, sess.UserID, interval)

	out := make([]video.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := store.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out, werr
}

// Sweep reconciles unsettled records of every known owner on each tick until
// ctx ends.
func (r *Reconciler) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, owner := range r.stores.Owners() {
			if _, err := r.reconcileOwner(ctx, owner); err != nil && ctx.Err() == nil {
				log.Warnf("Sweep: reconcile for user %s failed: %v", owner, err)
			}
		}
	}
}

// merge copies the authoritative fields of remote onto the local record.
// With appendMissing set, a record absent from the store is added.
func (r *Reconciler) merge(ownerID string, remote video.Record, appendMissing bool) (video.Record, bool) {
	store := r.stores.For(ownerID)
	src := remote.Clone()
	rec, ok := store.Update(remote.ID, func(local *video.Record) {
		local.Status = src.Status
		local.Title = src.Title
		local.Analysis = src.Analysis
		local.UpdatedAt = src.UpdatedAt
		if local.Status != video.StatusComplete {
			local.Analysis = nil
		}
	})
	if ok {
		return rec, true
	}
	if appendMissing && store.Append(remote) {
		return remote.Clone(), true
	}
	return remote, false
}
