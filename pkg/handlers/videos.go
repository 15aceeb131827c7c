package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Asaad942/VidFold/pkg/ingest"
	"github.com/Asaad942/VidFold/pkg/utils"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// IdempotencyHeader lets a client retry a submission that is still in flight.
const IdempotencyHeader = "Idempotency-Key"

// MaxPageSize caps ?limit= on GET /api/videos.
const MaxPageSize = 100

type SubmitVideoRequest struct {
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	RequestID string `json:"request_id"`
}

type UpdateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// SubmitVideo saves a link as a pending video and starts processing. With
// ?wait=true the response carries the record after the trigger outcome.
func (h *Handlers) SubmitVideo(c *gin.Context) {
	var req SubmitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("SubmitVideo: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader(IdempotencyHeader)
	}

	sub, err := h.Coordinator.Submit(c.Request.Context(), ingest.SubmitInput{
		URL:       req.URL,
		Platform:  req.Platform,
		RequestID: req.RequestID,
	})
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}

	rec := sub.Record
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		final, err := sub.Wait(c.Request.Context())
		if err != nil {
			log.Warnf("SubmitVideo: stopped waiting for video %s: %v", rec.ID, err)
		}
		rec = final
	}

	utils.ResponseWithSuccess(c, http.StatusCreated, "Video saved", rec)
}

// ListVideos returns the user's videos newest first, optionally for one
// platform. ?refresh=true reloads from the database. ?limit= and ?offset=
// read one page from the database instead of the whole library.
func (h *Handlers) ListVideos(c *gin.Context) {
	filter, paged, err := pageFilter(c)
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	if paged {
		h.listPage(c, filter)
		return
	}

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if _, err := h.Library.Load(c.Request.Context()); err != nil {
			utils.ResponseWithDomainError(c, err)
			return
		}
	}

	records, err := h.Library.Filter(c.Request.Context(), c.Query("platform"))
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Videos retrieved", records)
}

func (h *Handlers) listPage(c *gin.Context, filter video.ListFilter) {
	label := strings.TrimSpace(c.Query("platform"))
	if label != "" && !strings.EqualFold(label, video.FilterAll) {
		p, ok := video.ParsePlatform(label)
		if !ok {
			utils.ResponseWithSuccess(c, http.StatusOK, "Videos retrieved", []video.Record{})
			return
		}
		filter.Platform = p
	}

	records, err := h.Library.Page(c.Request.Context(), filter)
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Videos retrieved", records)
}

// pageFilter reads ?limit= and ?offset=. paged is false when neither is set.
// An offset without a limit pages by MaxPageSize.
func pageFilter(c *gin.Context) (video.ListFilter, bool, error) {
	rawLimit, hasLimit := c.GetQuery("limit")
	rawOffset, hasOffset := c.GetQuery("offset")
	if !hasLimit && !hasOffset {
		return video.ListFilter{}, false, nil
	}

	filter := video.ListFilter{Limit: MaxPageSize}
	if hasLimit {
		n, err := strconv.ParseUint(strings.TrimSpace(rawLimit), 10, 64)
		if err != nil || n == 0 {
			return filter, false, video.NewValidationError("limit", "must be a positive integer")
		}
		filter.Limit = min(n, MaxPageSize)
	}
	if hasOffset {
		n, err := strconv.ParseUint(strings.TrimSpace(rawOffset), 10, 64)
		if err != nil {
			return filter, false, video.NewValidationError("offset", "must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, true, nil
}

func (h *Handlers) GetVideo(c *gin.Context) {
	rec, err := h.Library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video retrieved", rec)
}

func (h *Handlers) UpdateVideo(c *gin.Context) {
	var req UpdateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("UpdateVideo: Invalid request body: %v", err)
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	rec, err := h.Library.Edit(c.Request.Context(), c.Param("id"), req.Title, req.Description)
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video updated", rec)
}

func (h *Handlers) DeleteVideo(c *gin.Context) {
	if err := h.Library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video deleted", nil)
}

// ReconcileVideo refreshes one video's status from the database.
func (h *Handlers) ReconcileVideo(c *gin.Context) {
	rec, err := h.Reconciler.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video status refreshed", rec)
}

// ReconcilePending refreshes every video that is still pending or processing.
// With ?watch=true it keeps refreshing until they settle, the client goes
// away or WatchTimeout passes, and answers with the records as they stand.
func (h *Handlers) ReconcilePending(c *gin.Context) {
	if _, err := h.Library.Filter(c.Request.Context(), video.FilterAll); err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}

	if watch, _ := strconv.ParseBool(c.Query("watch")); watch {
		h.watchPending(c)
		return
	}

	records, err := h.Reconciler.ReconcilePending(c.Request.Context())
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video statuses refreshed", records)
}

func (h *Handlers) watchPending(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.WatchTimeout)
	defer cancel()

	records, err := h.Reconciler.WatchPending(ctx, h.WatchInterval)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			utils.ResponseWithDomainError(c, err)
			return
		}
		log.Warnf("ReconcilePending: stopped watching with %d videos: %v", len(records), err)
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Video statuses refreshed", records)
}

func (h *Handlers) SearchVideos(c *gin.Context) {
	results, err := h.Search.Search(c.Request.Context(), c.Query("query"), c.Query("platform"))
	if err != nil {
		utils.ResponseWithDomainError(c, err)
		return
	}
	utils.ResponseWithSuccess(c, http.StatusOK, "Search completed", results)
}
