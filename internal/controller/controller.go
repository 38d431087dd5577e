package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/service"
	"github.com/rs/zerolog/log"
)

// RecordingID reads the :recording_id path parameter. On failure it has
// already written a 400 response.
func RecordingID(c *gin.Context) (uint, bool) {
	return pathID(c, "recording_id", "Invalid Recording ID format")
}

func PassageID(c *gin.Context) (uint, bool) {
	return pathID(c, "passage_id", "Invalid Passage ID format")
}

func pathID(c *gin.Context, param, message string) (uint, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: message, Details: []string{raw}})
		return 0, false
	}
	return uint(id), true
}

// BindJSON binds the request body and answers 400 when it does not validate.
func BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return false
	}
	return true
}

// RespondError maps service errors onto HTTP status codes.
func RespondError(c *gin.Context, err error, message string) {
	var (
		validationErr    *service.ValidationError
		transcriptionErr *service.TranscriptionError
		evaluationErr    *service.EvaluationError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &transcriptionErr), errors.As(err, &evaluationErr):
		status = http.StatusBadGateway
	case errors.Is(err, service.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Int("status", status).Str("path", c.FullPath()).Msg(message)
	c.JSON(status, dto.ErrorResponse{Message: message, Details: []string{err.Error()}})
}

// ProcessStatus picks the response code for a pipeline result. An "error"
// result is reported as 502 when retrying may help and 422 when it won't.
func ProcessStatus(result *dto.ProcessResultDTO) int {
	switch result.Status {
	case dto.StatusError:
		if result.Retryable {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	case dto.StatusScheduledTranscription, dto.StatusScheduledEvaluation:
		return http.StatusAccepted
	}
	return http.StatusOK
}
