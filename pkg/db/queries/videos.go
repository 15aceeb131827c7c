package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Asaad942/VidFold/pkg/db"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

var videoColumns = []string{
	"v.id", "v.user_id", "v.url", "v.platform", "v.title", "v.description",
	"v.status", "v.created_at", "v.updated_at",
	"a.video_id AS analysis_video_id", "a.search_summary", "a.visual_summary",
	"a.audio_transcription", "a.keywords", "a.confidence",
}

// VideoRepository persists video records. Every read and write is scoped to
// the owning user.
type VideoRepository struct {
	db  *sqlx.DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

func NewVideoRepository(conn *sqlx.DB) *VideoRepository {
	return &VideoRepository{
		db:  conn,
		sb:  db.Builder(conn),
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Insert stores a new record. Missing id and timestamps are filled in; the
// stored record is returned.
func (r *VideoRepository) Insert(ctx context.Context, rec video.Record) (video.Record, error) {
	if rec.OwnerID == "" {
		return video.Record{}, video.NewValidationError("owner_id", "is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := r.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Status == "" {
		rec.Status = video.StatusPending
	}
	if rec.Status != video.StatusComplete {
		rec.Analysis = nil
	}

	query, args, err := r.sb.Insert("videos").
		Columns("id", "user_id", "url", "platform", "title", "description", "status", "created_at", "updated_at").
		Values(rec.ID, rec.OwnerID, rec.URL, string(rec.Platform), nullString(rec.Title), nullString(rec.Description),
			string(rec.Status), rec.CreatedAt, rec.UpdatedAt).
		ToSql()
	if err != nil {
		return video.Record{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Errorf("InsertVideo: error inserting video for user '%s': %v", rec.OwnerID, err)
		return video.Record{}, err
	}

	log.Infof("InsertVideo: video %s created for user %s", rec.ID, rec.OwnerID)
	return rec, nil
}

// SelectByOwner lists an owner's records newest first.
func (r *VideoRepository) SelectByOwner(ctx context.Context, ownerID string, filter video.ListFilter) ([]video.Record, error) {
	q := r.selectVideos().
		Where(squirrel.Eq{"v.user_id": ownerID}).
		OrderBy("v.created_at DESC", "v.id")
	if filter.Platform != "" {
		q = q.Where(squirrel.Eq{"v.platform": string(filter.Platform)})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	return r.list(ctx, q)
}

// FindByID returns video.ErrNotFound when the record does not exist or
// belongs to someone else.
func (r *VideoRepository) FindByID(ctx context.Context, ownerID, id string) (video.Record, error) {
	query, args, err := r.selectVideos().
		Where(squirrel.Eq{"v.id": id, "v.user_id": ownerID}).
		ToSql()
	if err != nil {
		return video.Record{}, fmt.Errorf("build select: %w", err)
	}

	var row db.Video
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return video.Record{}, video.ErrNotFound
		}
		log.Errorf("FindVideoByID: error fetching video '%s': %v", id, err)
		return video.Record{}, err
	}
	return row.Record(), nil
}

// UpdateFields applies a partial update and returns the stored record.
// Analysis is upserted with a complete status and dropped otherwise.
func (r *VideoRepository) UpdateFields(ctx context.Context, ownerID, id string, u video.FieldUpdate) (video.Record, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return video.Record{}, err
	}
	defer tx.Rollback()

	now := r.now()
	upd := r.sb.Update("videos").
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "user_id": ownerID})
	if u.Title != nil {
		upd = upd.Set("title", *u.Title)
	}
	if u.Description != nil {
		upd = upd.Set("description", *u.Description)
	}
	if u.Status != nil {
		upd = upd.Set("status", string(*u.Status))
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return video.Record{}, fmt.Errorf("build update: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Errorf("UpdateVideoFields: error updating video '%s': %v", id, err)
		return video.Record{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		log.Warnf("UpdateVideoFields: no video '%s' for user '%s'", id, ownerID)
		return video.Record{}, video.ErrNotFound
	}

	dropAnalysis := u.ClearAnalysis || (u.Status != nil && *u.Status != video.StatusComplete)
	switch {
	case dropAnalysis:
		if err := r.deleteAnalysis(ctx, tx, id); err != nil {
			return video.Record{}, err
		}
	case u.Analysis != nil:
		if err := r.upsertAnalysis(ctx, tx, id, *u.Analysis, now); err != nil {
			return video.Record{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return video.Record{}, err
	}
	return r.FindByID(ctx, ownerID, id)
}

// DeleteByID removes a record. It returns video.ErrNotFound when nothing
// matched the id and owner.
func (r *VideoRepository) DeleteByID(ctx context.Context, ownerID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := r.sb.Delete("videos").
		Where(squirrel.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Errorf("DeleteVideo: error deleting video '%s': %v", id, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		log.Warnf("DeleteVideo: no video '%s' for user '%s'", id, ownerID)
		return video.ErrNotFound
	}
	if err := r.deleteAnalysis(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Infof("DeleteVideo: video '%s' deleted.", id)
	return nil
}

// FullTextSearch matches the query against titles and analysis text.
func (r *VideoRepository) FullTextSearch(ctx context.Context, ownerID, query string, filter video.ListFilter) ([]video.Record, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	match := squirrel.Or{}
	for _, col := range []string{"v.title", "v.description", "a.search_summary", "a.visual_summary", "a.audio_transcription", "a.keywords"} {
		match = append(match, squirrel.Expr("LOWER(COALESCE("+col+", '')) LIKE ? ESCAPE '\\'", pattern))
	}

	q := r.selectVideos().
		Where(squirrel.Eq{"v.user_id": ownerID}).
		Where(match).
		OrderBy("v.created_at DESC", "v.id")
	if filter.Platform != "" {
		q = q.Where(squirrel.Eq{"v.platform": string(filter.Platform)})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return r.list(ctx, q)
}

func (r *VideoRepository) selectVideos() squirrel.SelectBuilder {
	return r.sb.Select(videoColumns...).
		From("videos v").
		LeftJoin("video_analysis a ON a.video_id = v.id")
}

func (r *VideoRepository) list(ctx context.Context, q squirrel.SelectBuilder) ([]video.Record, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var rows []db.Video
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Errorf("ListVideos: query failed: %v", err)
		return nil, err
	}
	out := make([]video.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Record())
	}
	return out, nil
}

func (r *VideoRepository) upsertAnalysis(ctx context.Context, tx *sqlx.Tx, id string, a video.Analysis, now time.Time) error {
	query, args, err := r.sb.Insert("video_analysis").
		Columns("video_id", "search_summary", "visual_summary", "audio_transcription", "keywords", "confidence", "updated_at").
		Values(id, a.Summary, a.VisualSummary, a.Transcription, db.StringList(a.Keywords), db.ScoreMap(a.Confidence), now).
		Suffix(`ON CONFLICT (video_id) DO UPDATE SET
			search_summary = excluded.search_summary,
			visual_summary = excluded.visual_summary,
			audio_transcription = excluded.audio_transcription,
			keywords = excluded.keywords,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.Errorf("UpsertAnalysis: error storing analysis for '%s': %v", id, err)
		return err
	}
	return nil
}

func (r *VideoRepository) deleteAnalysis(ctx context.Context, tx *sqlx.Tx, id string) error {
	query, args, err := r.sb.Delete("video_analysis").Where(squirrel.Eq{"video_id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
