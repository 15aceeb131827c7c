// Package ingest turns submitted links into tracked video records and keeps
// the per-owner stores in step with persistence and the processing service.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/services"
	"github.com/Asaad942/VidFold/pkg/video"
)

// Authenticator reports the user behind a context, or nil.
type Authenticator interface {
	CurrentUser(ctx context.Context) *services.Session
}

// Repository is the persistence contract. Every call is scoped to an owner.
type Repository interface {
	Insert(ctx context.Context, rec video.Record) (video.Record, error)
	SelectByOwner(ctx context.Context, ownerID string, filter video.ListFilter) ([]video.Record, error)
	FindByID(ctx context.Context, ownerID, id string) (video.Record, error)
	UpdateFields(ctx context.Context, ownerID, id string, u video.FieldUpdate) (video.Record, error)
	DeleteByID(ctx context.Context, ownerID, id string) error
}

// Trigger starts remote processing of a saved record.
type Trigger interface {
	Process(ctx context.Context, token string, req processing.TriggerRequest) (*processing.TriggerResponse, error)
}

// TriggerOutcome is the result of one detached trigger call.
type TriggerOutcome struct {
	OwnerID  string
	VideoID  string
	Response *processing.TriggerResponse
	Err      error
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func currentOwner(ctx context.Context, auth Authenticator) (*services.Session, error) {
	sess := auth.CurrentUser(ctx)
	if sess == nil {
		return nil, video.ErrUnauthenticated
	}
	return sess, nil
}

// persistenceErr wraps unexpected repository failures and passes the
// domain sentinels through untouched.
func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, video.ErrNotFound) || errors.Is(err, video.ErrValidation) {
		return err
	}
	return &video.PersistenceError{Op: op, Err: err}
}
