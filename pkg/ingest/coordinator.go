package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Asaad942/VidFold/pkg/metrics"
	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SubmitInput is one link submission. RequestID, when set, lets a client
// retry an in-flight submission without creating a second record.
type SubmitInput struct {
	URL       string
	Platform  string
	RequestID string
}

// Submission is a pending record whose processing trigger is still running.
type Submission struct {
	Record video.Record

	done  chan struct{}
	final video.Record
}

func newSubmission(rec video.Record) *Submission {
	return &Submission{Record: rec, done: make(chan struct{})}
}

func (s *Submission) finish(rec video.Record) {
	s.final = rec
	close(s.done)
}

// Done is closed once the trigger outcome has been applied.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the trigger outcome has been applied and returns the
// record as it stood at that point.
func (s *Submission) Wait(ctx context.Context) (video.Record, error) {
	select {
	case <-s.done:
		return s.final, nil
	case <-ctx.Done():
		return s.Record, ctx.Err()
	}
}

// Coordinator runs the submission pipeline.
type Coordinator struct {
	auth       Authenticator
	repo       Repository
	trigger    Trigger
	stores     *video.Stores
	reconciler *Reconciler
	metrics    *metrics.Metrics

	triggerTimeout time.Duration
	now            func() time.Time

	inflight singleflight.Group
	wg       sync.WaitGroup
}

func NewCoordinator(auth Authenticator, repo Repository, trigger Trigger, stores *video.Stores,
	reconciler *Reconciler, m *metrics.Metrics, triggerTimeout time.Duration) *Coordinator {
	return &Coordinator{
		auth:           auth,
		repo:           repo,
		trigger:        trigger,
		stores:         stores,
		reconciler:     reconciler,
		metrics:        m,
		triggerTimeout: triggerTimeout,
		now:            utcNow,
	}
}

// Submit validates the link, persists a pending record, adds it to the
// owner's store and starts processing in the background. Trigger failures
// never surface here; they land on the record as status error.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	rawURL, err := video.ValidateURL(in.URL)
	if err != nil {
		c.metrics.Submission("invalid")
		return nil, err
	}

	platform, err := resolvePlatform(in.Platform, rawURL)
	if err != nil {
		if errors.Is(err, video.ErrPlatformRequired) {
			c.metrics.Submission("platform_required")
		} else {
			c.metrics.Submission("invalid")
		}
		return nil, err
	}

	sess, err := currentOwner(ctx, c.auth)
	if err != nil {
		c.metrics.Submission("unauthenticated")
		return nil, err
	}

	if in.RequestID == "" {
		return c.submit(ctx, sess, rawURL, platform)
	}

	v, err, shared := c.inflight.Do(sess.UserID+"/"+in.RequestID, func() (interface{}, error) {
		return c.submit(ctx, sess, rawURL, platform)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debugf("Submit: request %s joined an in-flight submission", in.RequestID)
	}
	return v.(*Submission), nil
}

func (c *Coordinator) submit(ctx context.Context, sess *services.Session, rawURL string, platform video.Platform) (*Submission, error) {
	now := c.now()
	stored, err := c.repo.Insert(ctx, video.Record{
		OwnerID:   sess.UserID,
		URL:       rawURL,
		Platform:  platform,
		Status:    video.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		c.metrics.Submission("persistence_error")
		log.Errorf("Submit: failed to save video for user %s: %v", sess.UserID, err)
		return nil, &video.PersistenceError{Op: "insert", Err: err}
	}

	c.stores.For(sess.UserID).Append(stored)
	c.metrics.Submission("accepted")
	log.Infof("Submit: video %s saved as %s for user %s", stored.ID, stored.Platform, sess.UserID)

	sub := newSubmission(stored)
	c.wg.Add(1)
	go c.runTrigger(ctx, sess, stored, sub)
	return sub, nil
}

// runTrigger outlives the submitting request: its context keeps the request
// values but not its cancellation.
func (c *Coordinator) runTrigger(parent context.Context, sess *services.Session, rec video.Record, sub *Submission) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.triggerTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.trigger.Process(ctx, sess.Token, processing.TriggerRequest{
		VideoID:  rec.ID,
		URL:      rec.URL,
		Platform: rec.Platform.Lower(),
	})

	outcome := TriggerOutcome{OwnerID: rec.OwnerID, VideoID: rec.ID, Response: resp}
	if err != nil {
		terr := &video.ProcessingTriggerError{VideoID: rec.ID, Err: err}
		var httpErr *processing.HTTPError
		if errors.As(err, &httpErr) {
			terr.StatusCode = httpErr.StatusCode
		}
		outcome.Err = terr
		c.metrics.Trigger("failure", time.Since(start))
	} else {
		c.metrics.Trigger("success", time.Since(start))
	}

	final := c.reconciler.ApplyTriggerOutcome(ctx, outcome)
	if final.ID == "" {
		final = rec
	}
	sub.finish(final)
}

// Wait blocks until every detached trigger has finished or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolvePlatform prefers an explicit platform over detection. An explicit
// label we do not know is a validation error, not a fallback to detection.
func resolvePlatform(explicit, rawURL string) (video.Platform, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		p, ok := video.ParsePlatform(explicit)
		if !ok {
			return "", video.NewValidationError("platform", "unknown platform "+explicit)
		}
		if p.Known() {
			return p, nil
		}
	}
	if p := video.DetectPlatform(rawURL); p.Known() {
		return p, nil
	}
	return "", video.ErrPlatformRequired
}
