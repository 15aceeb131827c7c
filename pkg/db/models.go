package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Video is a videos row joined with its optional video_analysis row.
type Video struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	URL         string         `db:"url"`
	Platform    string         `db:"platform"`
	Title       sql.NullString `db:"title"`
	Description sql.NullString `db:"description"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`

	AnalysisVideoID    sql.NullString `db:"analysis_video_id"`
	SearchSummary      sql.NullString `db:"search_summary"`
	VisualSummary      sql.NullString `db:"visual_summary"`
	AudioTranscription sql.NullString `db:"audio_transcription"`
	Keywords           StringList     `db:"keywords"`
	Confidence         ScoreMap       `db:"confidence"`
}

// Record maps the row to the domain type. Analysis is only attached to
// complete records.
func (v Video) Record() video.Record {
	platform, ok := video.ParsePlatform(v.Platform)
	if !ok {
		platform = video.PlatformUnknown
	}
	status, ok := video.ParseStatus(v.Status)
	if !ok {
		status = video.StatusPending
	}

	r := video.Record{
		ID:        v.ID,
		OwnerID:   v.UserID,
		URL:       v.URL,
		Platform:  platform,
		Status:    status,
		CreatedAt: v.CreatedAt.UTC(),
		UpdatedAt: v.UpdatedAt.UTC(),
	}
	if v.Title.Valid {
		r.Title = video.StringPtr(v.Title.String)
	}
	if v.Description.Valid {
		r.Description = video.StringPtr(v.Description.String)
	}
	if status == video.StatusComplete && v.AnalysisVideoID.Valid {
		r.Analysis = &video.Analysis{
			Summary:       v.SearchSummary.String,
			VisualSummary: v.VisualSummary.String,
			Transcription: v.AudioTranscription.String,
			Keywords:      []string(v.Keywords),
			Confidence:    map[string]float64(v.Confidence),
		}
	}
	return r
}

// StringList is stored as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// ScoreMap is stored as a JSON object in a TEXT column.
type ScoreMap map[string]float64

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]float64(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ScoreMap) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*m = nil
		return err
	}
	return json.Unmarshal(raw, (*map[string]float64)(m))
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("db: cannot scan %T as JSON", src)
}
