package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/Asaad942/VidFold/pkg/video"
	log "github.com/sirupsen/logrus"
)

// Library serves the owner's saved videos: listing, filtering, edits and
// deletion.
type Library struct {
	auth   Authenticator
	repo   Repository
	stores *video.Stores
}

func NewLibrary(auth Authenticator, repo Repository, stores *video.Stores) *Library {
	return &Library{auth: auth, repo: repo, stores: stores}
}

// Load reads every record of the current user from persistence into the
// store and returns them newest first.
func (l *Library) Load(ctx context.Context) ([]video.Record, error) {
	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return nil, err
	}
	records, err := l.repo.SelectByOwner(ctx, sess.UserID, video.ListFilter{})
	if err != nil {
		log.Errorf("Load: failed to list videos for user %s: %v", sess.UserID, err)
		return nil, persistenceErr("select", err)
	}
	store := l.stores.For(sess.UserID)
	store.Load(records)
	return store.All(), nil
}

// Filter returns the current user's records for one platform ("All" or empty
// for everything). The store is loaded on first use.
func (l *Library) Filter(ctx context.Context, platform string) ([]video.Record, error) {
	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return nil, err
	}
	store := l.stores.For(sess.UserID)
	if !store.Loaded() {
		if _, err := l.Load(ctx); err != nil {
			return nil, err
		}
	}
	return store.Filter(platform), nil
}

// Page reads one page of the current user's records straight from
// persistence, newest first, and merges it into the store.
func (l *Library) Page(ctx context.Context, filter video.ListFilter) ([]video.Record, error) {
	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return nil, err
	}
	records, err := l.repo.SelectByOwner(ctx, sess.UserID, filter)
	if err != nil {
		log.Errorf("Page: failed to list videos for user %s: %v", sess.UserID, err)
		return nil, persistenceErr("select", err)
	}
	store := l.stores.For(sess.UserID)
	for _, rec := range records {
		store.Append(rec)
	}
	if records == nil {
		records = []video.Record{}
	}
	return records, nil
}

// Get returns one record, reading through to persistence when the store does
// not hold it.
func (l *Library) Get(ctx context.Context, id string) (video.Record, error) {
	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return video.Record{}, err
	}
	store := l.stores.For(sess.UserID)
	if rec, ok := store.Get(id); ok {
		return rec, nil
	}
	rec, err := l.repo.FindByID(ctx, sess.UserID, id)
	if err != nil {
		return video.Record{}, persistenceErr("find", err)
	}
	store.Append(rec)
	return rec, nil
}

// Edit changes the user-editable fields of a record. A nil field is left as is.
func (l *Library) Edit(ctx context.Context, id string, title, description *string) (video.Record, error) {
	if title == nil && description == nil {
		return video.Record{}, video.NewValidationError("body", "title or description is required")
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return video.Record{}, video.NewValidationError("title", "must not be empty")
		}
		title = &t
	}

	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return video.Record{}, err
	}

	persisted, err := l.repo.UpdateFields(ctx, sess.UserID, id, video.FieldUpdate{Title: title, Description: description})
	if err != nil {
		if !errors.Is(err, video.ErrNotFound) {
			log.Errorf("Edit: failed to update video %s: %v", id, err)
		}
		return video.Record{}, persistenceErr("update", err)
	}

	store := l.stores.For(sess.UserID)
	src := persisted.Clone()
	rec, ok := store.Update(id, func(local *video.Record) {
		local.Title = src.Title
		local.Description = src.Description
		local.UpdatedAt = src.UpdatedAt
	})
	if !ok {
		store.Append(persisted)
		return persisted, nil
	}
	return rec, nil
}

// Delete hard-deletes a record of the current user. Another user's record is
// reported as not found and left untouched.
func (l *Library) Delete(ctx context.Context, id string) error {
	sess, err := currentOwner(ctx, l.auth)
	if err != nil {
		return err
	}
	if err := l.repo.DeleteByID(ctx, sess.UserID, id); err != nil {
		if !errors.Is(err, video.ErrNotFound) {
			log.Errorf("Delete: failed to delete video %s: %v", id, err)
		}
		return persistenceErr("delete", err)
	}
	l.stores.For(sess.UserID).Remove(id)
	log.Infof("Delete: video %s removed for user %s", id, sess.UserID)
	return nil
}
