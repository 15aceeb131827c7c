package processing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Asaad942/VidFold/pkg/video"
)

// TriggerRequest is the body of POST /videos/process.
type TriggerRequest struct {
	VideoID  string `json:"video_id"`
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// TriggerResponse is what the processing service answers to a trigger. Every
// field is optional.
type TriggerResponse struct {
	Status   string    `json:"status,omitempty"`
	Message  string    `json:"message,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	Title        string  `json:"title,omitempty"`
	Description  string  `json:"description,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
}

// Validate rejects a response carrying a status we do not know.
func (r TriggerResponse) Validate() error {
	if r.Status == "" {
		return nil
	}
	if _, ok := video.ParseStatus(r.Status); !ok {
		return fmt.Errorf("processing: unknown status %q", r.Status)
	}
	return nil
}

// Update converts the response into the fields it is allowed to change.
func (r TriggerResponse) Update() video.FieldUpdate {
	var u video.FieldUpdate
	if s, ok := video.ParseStatus(r.Status); ok {
		u.Status = &s
	}
	if r.Metadata != nil {
		if t := strings.TrimSpace(r.Metadata.Title); t != "" {
			u.Title = &t
		}
	}
	return u
}

// SearchHit is one element of the GET /videos/search response.
type SearchHit struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	ThumbnailURL   string  `json:"thumbnail_url,omitempty"`
	Platform       string  `json:"platform"`
	RelevanceScore float64 `json:"relevance_score"`
}

func (h SearchHit) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return errors.New("processing: search hit without id")
	}
	if h.RelevanceScore < 0 {
		return fmt.Errorf("processing: negative relevance score for %s", h.ID)
	}
	return nil
}

// AnalysisPayload is the analysis block of a status report.
type AnalysisPayload struct {
	SearchSummary      string             `json:"search_summary"`
	VisualSummary      string             `json:"visual_summary"`
	AudioTranscription string             `json:"audio_transcription"`
	Keywords           []string           `json:"keywords"`
	Confidence         map[string]float64 `json:"confidence_scores,omitempty"`
}

// StatusEvent is a processor status report, delivered by callback or queue.
type StatusEvent struct {
	VideoID  string           `json:"video_id"`
	UserID   string           `json:"user_id"`
	Status   string           `json:"status"`
	Title    string           `json:"title,omitempty"`
	Analysis *AnalysisPayload `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (e StatusEvent) Validate() error {
	var errs []error
	if strings.TrimSpace(e.VideoID) == "" {
		errs = append(errs, video.NewValidationError("video_id", "is required"))
	}
	if strings.TrimSpace(e.UserID) == "" {
		errs = append(errs, video.NewValidationError("user_id", "is required"))
	}
	status, ok := video.ParseStatus(e.Status)
	if !ok {
		errs = append(errs, video.NewValidationError("status", fmt.Sprintf("unknown value %q", e.Status)))
	}
	if ok && status == video.StatusComplete && e.Analysis == nil {
		errs = append(errs, video.NewValidationError("analysis", "is required when complete"))
	}
	return errors.Join(errs...)
}

// Update converts a validated event into a field update.
func (e StatusEvent) Update() video.FieldUpdate {
	status, _ := video.ParseStatus(e.Status)
	u := video.FieldUpdate{Status: &status}
	if t := strings.TrimSpace(e.Title); t != "" {
		u.Title = &t
	}
	if status == video.StatusComplete && e.Analysis != nil {
		u.Analysis = &video.Analysis{
			Summary:       e.Analysis.SearchSummary,
			VisualSummary: e.Analysis.VisualSummary,
			Transcription: e.Analysis.AudioTranscription,
			Keywords:      e.Analysis.Keywords,
			Confidence:    e.Analysis.Confidence,
		}
	} else {
		u.ClearAnalysis = true
	}
	return u
}
