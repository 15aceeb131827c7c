package utils

import (
	"errors"
	"net/http"

	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func ResponseWithSuccess(
	c *gin.Context,
	statusCode int,
	message string,
	data interface{},
) {
	c.JSON(statusCode, JSONResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ResponseWithError(
	c *gin.Context,
	statusCode int,
	message string,
	errorDetails interface{},
) {
	c.JSON(statusCode, JSONResponse{
		Success: false,
		Message: message,
		Error:   errorDetails,
	})
}

// StatusForError maps the video error taxonomy to an HTTP status and a short
// client-facing message.
func StatusForError(err error) (int, string) {
	var verr *video.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, video.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, video.ErrPlatformRequired):
		return http.StatusUnprocessableEntity, "Could not detect the platform, please choose one"
	case errors.Is(err, video.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, video.ErrNotFound):
		return http.StatusNotFound, "Video not found"
	case errors.Is(err, video.ErrSearch):
		return http.StatusBadGateway, "Search is unavailable"
	case errors.Is(err, video.ErrProcessing):
		return http.StatusBadGateway, "Processing service is unavailable"
	case errors.Is(err, video.ErrPersistence):
		return http.StatusInternalServerError, "Failed to save video"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// ResponseWithDomainError writes err through StatusForError. Internal
// details are only exposed for client errors.
func ResponseWithDomainError(c *gin.Context, err error) {
	status, message := StatusForError(err)
	var details interface{}
	if status < http.StatusInternalServerError {
		details = err.Error()
	}
	ResponseWithError(c, status, message, details)
}
