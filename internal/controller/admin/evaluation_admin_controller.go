package admin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/internal/controller"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/service"
	"github.com/rs/zerolog/log"
)

type EvaluationAdminController struct {
	evaluationService service.EvaluationService
	statisticsService service.StatisticsService
}

func NewEvaluationAdminController(es service.EvaluationService, ss service.StatisticsService) *EvaluationAdminController {
	return &EvaluationAdminController{evaluationService: es, statisticsService: ss}
}

// ProcessRecording godoc
// @Summary (Admin) Run the evaluation pipeline synchronously
// @Description Transcribes and evaluates whatever is still missing. A recording that is already evaluated is returned as is.
// @Tags Admin - Evaluation
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Success 200 {object} dto.ProcessResultDTO
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Failure 422 {object} dto.ProcessResultDTO "Permanent failure"
// @Failure 502 {object} dto.ProcessResultDTO "Transient failure, retry later"
// @Router /admin/recordings/{recording_id}/evaluation/process [post]
func (c *EvaluationAdminController) ProcessRecording(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	result, err := c.evaluationService.ProcessRecording(ctx.Request.Context(), recordingID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to process recording")
		return
	}
	ctx.JSON(controller.ProcessStatus(result), result)
}

// ForceReevaluation godoc
// @Summary (Admin) Re-run the AI evaluation and overwrite the stored result
// @Tags Admin - Evaluation
// @Accept json
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Param options body dto.ReevaluateRequestDTO false "Set retranscribe to also replace the transcription"
// @Success 200 {object} dto.ProcessResultDTO
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Router /admin/recordings/{recording_id}/evaluation/force [post]
func (c *EvaluationAdminController) ForceReevaluation(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	var req dto.ReevaluateRequestDTO
	// the body is optional
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn().Err(err).Msg("Admin ForceReevaluation: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	log.Info().Uint("recordingID", recordingID).Bool("retranscribe", req.Retranscribe).Msg("Admin ForceReevaluation: Re-evaluating recording")
	result, err := c.evaluationService.Reevaluate(ctx.Request.Context(), recordingID, req.Retranscribe)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to re-evaluate recording")
		return
	}
	ctx.JSON(controller.ProcessStatus(result), result)
}

// RecordManualScore godoc
// @Summary (Admin) Store a grader's LUS score
// @Tags Admin - Evaluation
// @Accept json
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Param score body dto.ManualScoreRequestDTO true "Score between 1 and 20"
// @Success 200 {object} dto.EvaluationStateDTO
// @Failure 400 {object} dto.ErrorResponse "Score out of range"
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Router /admin/recordings/{recording_id}/manual-score [put]
func (c *EvaluationAdminController) RecordManualScore(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	var req dto.ManualScoreRequestDTO
	if !controller.BindJSON(ctx, &req) {
		return
	}
	state, err := c.evaluationService.RecordManualScore(ctx.Request.Context(), recordingID, req.Score)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to record manual score")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetStatistics godoc
// @Summary (Admin) Aggregate scores over existing recordings
// @Tags Admin - Evaluation
// @Produce json
// @Success 200 {object} dto.StatisticsDTO
// @Router /admin/statistics [get]
func (c *EvaluationAdminController) GetStatistics(ctx *gin.Context) {
	stats, err := c.statisticsService.Summary(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, err, "Failed to compute statistics")
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// RegisterRoutes mounts the admin endpoints under api/admin.
func (c *EvaluationAdminController) RegisterRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	admin.POST("/recordings/:recording_id/evaluation/process", c.ProcessRecording)
	admin.POST("/recordings/:recording_id/evaluation/force", c.ForceReevaluation)
	admin.PUT("/recordings/:recording_id/manual-score", c.RecordManualScore)
	admin.GET("/statistics", c.GetStatistics)
}
