package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/internal/controller"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/service"
	"github.com/rs/zerolog/log"
)

type ContentAdminController struct {
	passageService   service.PassageService
	recordingService service.RecordingService
}

func NewContentAdminController(ps service.PassageService, rs service.RecordingService) *ContentAdminController {
	return &ContentAdminController{passageService: ps, recordingService: rs}
}

// CreatePassage godoc
// @Summary (Admin) Create a passage with its comprehension questions
// @Tags Admin - Content
// @Accept json
// @Produce json
// @Param passage body dto.PassageCreateDTO true "Passage and questions"
// @Success 201 {object} dto.PassageDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/passages [post]
func (c *ContentAdminController) CreatePassage(ctx *gin.Context) {
	var req dto.PassageCreateDTO
	if !controller.BindJSON(ctx, &req) {
		return
	}
	passage, err := c.passageService.CreatePassage(ctx.Request.Context(), req)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to create passage")
		return
	}
	ctx.JSON(http.StatusCreated, passage)
}

// DeleteRecording godoc
// @Summary (Admin) Delete a recording
// @Description Soft delete. Its assessments and evaluation are kept but no longer count in statistics.
// @Tags Admin - Content
// @Param recording_id path int true "Recording ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Recording not found"
// @Router /admin/recordings/{recording_id} [delete]
func (c *ContentAdminController) DeleteRecording(ctx *gin.Context) {
	recordingID, ok := controller.RecordingID(ctx)
	if !ok {
		return
	}
	if err := c.recordingService.DeleteRecording(ctx.Request.Context(), recordingID); err != nil {
		controller.RespondError(ctx, err, "Failed to delete recording")
		return
	}
	log.Info().Uint("recordingID", recordingID).Msg("Admin DeleteRecording: Recording removed")
	ctx.Status(http.StatusNoContent)
}

func (c *ContentAdminController) RegisterRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	admin.POST("/passages", c.CreatePassage)
	admin.DELETE("/recordings/:recording_id", c.DeleteRecording)
}
