package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/internal/controller"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/service"
	"github.com/rs/zerolog/log"
)

type RecordingController struct {
	rubricService     service.RubricService
	evaluationService service.EvaluationService
}

func NewRecordingController(rs service.RubricService, es service.EvaluationService) *RecordingController {
	return &RecordingController{
		rubricService:     rs,
		evaluationService: es,
	}
}

// SubmitAssessment godoc
// @Summary (User) Score comprehension answers for a recording
// @Description Every submission creates a new assessment; answers are matched against the passage's questions with a 90% similarity threshold.
// @Tags User - Recordings
// @Accept json
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Param answers body dto.AssessmentSubmitDTO true "Answers keyed by question ID"
// @Success 201 {object} dto.AssessmentResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /recordings/{recording_id}/assessments [post]
func (c *RecordingController) SubmitAssessment(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	var req dto.AssessmentSubmitDTO
	if !controller.BindJSON(ctx, &req) {
		return
	}
	answers, err := service.AnswersFromDTO(req)
	if err != nil {
		controller.RespondError(ctx, err, "Invalid answers")
		return
	}

	log.Info().Uint("recordingID", recordingID).Int("answers", len(answers)).Msg("User SubmitAssessment: Received answers")
	result, err := c.rubricService.EvaluateAnswers(ctx.Request.Context(), recordingID, answers)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to score answers")
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

// GetLatestAssessment godoc
// @Summary (User) Latest assessment of a recording
// @Tags User - Recordings
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Success 200 {object} dto.AssessmentDetailDTO
// @Failure 404 {object} dto.ErrorResponse "No assessment yet"
// @Router /recordings/{recording_id}/assessments/latest [get]
func (c *RecordingController) GetLatestAssessment(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	result, err := c.rubricService.LatestAssessment(ctx.Request.Context(), recordingID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to retrieve assessment")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// RequestEvaluation godoc
// @Summary (User) Request the automated reading evaluation
// @Description Queues transcription and AI evaluation. Returns the stored result immediately when the recording is already evaluated.
// @Tags User - Recordings
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Success 200 {object} dto.ProcessResultDTO "Already evaluated"
// @Success 202 {object} dto.ProcessResultDTO "Scheduled"
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Failure 502 {object} dto.ProcessResultDTO "Could not be scheduled, retry later"
// @Router /recordings/{recording_id}/evaluation [post]
func (c *RecordingController) RequestEvaluation(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	result, err := c.evaluationService.Schedule(ctx.Request.Context(), recordingID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to schedule evaluation")
		return
	}
	ctx.JSON(controller.ProcessStatus(result), result)
}

// GetEvaluation godoc
// @Summary (User) Evaluation state of a recording
// @Tags User - Recordings
// @Produce json
// @Param recording_id path int true "Recording ID"
// @Success 200 {object} dto.EvaluationStateDTO
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Router /recordings/{recording_id}/evaluation [get]
func (c *RecordingController) GetEvaluation(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	state, err := c.evaluationService.State(ctx.Request.Context(), recordingID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to retrieve evaluation state")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RecordingController) RegisterRoutes(api *gin.RouterGroup) {
	recordings := api.Group("/recordings/:recording_id")
	recordings.POST("/assessments", c.SubmitAssessment)
	recordings.GET("/assessments/latest", c.GetLatestAssessment)
	recordings.POST("/evaluation", c.RequestEvaluation)
	recordings.GET("/evaluation", c.GetEvaluation)
}
