package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Asaad942/VidFold/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{video.NewValidationError("url", "is required"), http.StatusBadRequest},
		{video.ErrPlatformRequired, http.StatusUnprocessableEntity},
		{fmt.Errorf("submit: %w", video.ErrUnauthenticated), http.StatusUnauthorized},
		{video.ErrNotFound, http.StatusNotFound},
		{&video.SearchError{Query: "q", Err: errors.New("boom")}, http.StatusBadGateway},
		{&video.PersistenceError{Op: "insert", Err: errors.New("boom")}, http.StatusInternalServerError},
		{errors.New("anything"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := StatusForError(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestResponseWithDomainError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ResponseWithDomainError(c, &video.PersistenceError{Op: "insert", Err: errors.New("dial tcp 10.0.0.1")})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Nil(t, body.Error)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	ResponseWithDomainError(c, video.NewValidationError("url", "is required"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "url")
}
