package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/Asaad942/VidFold/pkg/processing"
	"github.com/Asaad942/VidFold/pkg/utils"
	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CallbackTokenHeader carries the shared secret on processor callbacks.
const CallbackTokenHeader = "X-Callback-Token"

// HandleStatusCallback applies a status report posted by the processing
// service.
func (h *Handlers) HandleStatusCallback(c *gin.Context) {
	if h.CallbackSecret == "" {
		utils.ResponseWithError(c, http.StatusNotFound, "Callbacks are disabled", nil)
		return
	}
	token := c.GetHeader(CallbackTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.CallbackSecret)) != 1 {
		log.Warn("HandleStatusCallback: rejected callback with a bad token")
		h.Metrics.StatusEvent("callback", "unauthorized")
		utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid callback token", nil)
		return
	}

	var ev processing.StatusEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		log.Errorf("HandleStatusCallback: Invalid callback request body: %v", err)
		h.Metrics.StatusEvent("callback", "malformed")
		utils.ResponseWithError(c, http.StatusBadRequest, "Invalid callback request body", err.Error())
		return
	}

	log.Infof("HandleStatusCallback: report for video %s, status %s", ev.VideoID, ev.Status)

	rec, err := h.Reconciler.ApplyReport(c.Request.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, video.ErrValidation):
			h.Metrics.StatusEvent("callback", "invalid")
		case errors.Is(err, video.ErrNotFound):
			h.Metrics.StatusEvent("callback", "not_found")
		default:
			log.Errorf("HandleStatusCallback: failed to apply report for video %s: %v", ev.VideoID, err)
			h.Metrics.StatusEvent("callback", "failed")
		}
		utils.ResponseWithDomainError(c, err)
		return
	}

	h.Metrics.StatusEvent("callback", "applied")
	utils.ResponseWithSuccess(c, http.StatusOK, "Callback processed successfully", rec)
}
