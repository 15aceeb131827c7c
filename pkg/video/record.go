package video

import (
	"strings"
	"time"
)

// Status tracks a record through processing.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// ParseStatus normalises a status reported by the processing service.
// "completed" and "failed" are accepted as aliases.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "processing":
		return StatusProcessing, true
	case "complete", "completed":
		return StatusComplete, true
	case "error", "failed":
		return StatusError, true
	}
	return "", false
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusComplete, StatusError:
		return true
	}
	return false
}

// Settled reports whether processing has finished, successfully or not.
func (s Status) Settled() bool {
	return s == StatusComplete || s == StatusError
}

// Analysis is the processor output. Only complete records carry one.
type Analysis struct {
	Summary       string             `json:"summary,omitempty"`
	VisualSummary string             `json:"visual_summary,omitempty"`
	Transcription string             `json:"transcription,omitempty"`
	Keywords      []string           `json:"keywords,omitempty"`
	Confidence    map[string]float64 `json:"confidence,omitempty"`
}

// Record is one saved video link.
type Record struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	URL         string    `json:"url"`
	Platform    Platform  `json:"platform"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers never share mutable state with a Store.
func (r Record) Clone() Record {
	out := r
	if r.Title != nil {
		t := *r.Title
		out.Title = &t
	}
	if r.Description != nil {
		d := *r.Description
		out.Description = &d
	}
	if r.Analysis != nil {
		a := *r.Analysis
		if r.Analysis.Keywords != nil {
			a.Keywords = append([]string(nil), r.Analysis.Keywords...)
		}
		if r.Analysis.Confidence != nil {
			a.Confidence = make(map[string]float64, len(r.Analysis.Confidence))
			for k, v := range r.Analysis.Confidence {
				a.Confidence[k] = v
			}
		}
		out.Analysis = &a
	}
	return out
}

// FieldUpdate is a partial update. Nil fields are left untouched.
// ClearAnalysis drops a stored analysis when a record leaves the complete state.
type FieldUpdate struct {
	Title         *string
	Description   *string
	Status        *Status
	Analysis      *Analysis
	ClearAnalysis bool
}

func (u FieldUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Analysis == nil && !u.ClearAnalysis
}

// Apply merges u into r and bumps UpdatedAt. Analysis is kept only while the
// resulting status is complete.
func (r *Record) Apply(u FieldUpdate, now time.Time) {
	if u.Title != nil {
		t := *u.Title
		r.Title = &t
	}
	if u.Description != nil {
		d := *u.Description
		r.Description = &d
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Analysis != nil {
		a := *u.Analysis
		r.Analysis = &a
	}
	if u.ClearAnalysis || r.Status != StatusComplete {
		r.Analysis = nil
	}
	r.UpdatedAt = now
}

// ListFilter narrows a persistence listing. A zero value lists everything.
type ListFilter struct {
	Platform Platform
	Limit    uint64
	Offset   uint64
}

func StringPtr(s string) *string { return &s }

func StatusPtr(s Status) *Status { return &s }
