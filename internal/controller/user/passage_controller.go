package user

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/internal/controller"
	"github.com/lshigami/fluency/internal/dto"
	"github.com/lshigami/fluency/internal/service"
	"github.com/rs/zerolog/log"
)

// MaxAudioBytes caps a single uploaded reading.
const MaxAudioBytes = 25 << 20

type PassageController struct {
	passageService   service.PassageService
	recordingService service.RecordingService
}

func NewPassageController(ps service.PassageService, rs service.RecordingService) *PassageController {
	return &PassageController{passageService: ps, recordingService: rs}
}

// ListPassages godoc
// @Summary (User) List passages available for reading
// @Tags User - Passages
// @Produce json
// @Success 200 {array} dto.PassageSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /passages [get]
func (c *PassageController) ListPassages(ctx *gin.Context) {
	passages, err := c.passageService.ListPassages(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, err, "Failed to retrieve passages")
		return
	}
	ctx.JSON(http.StatusOK, passages)
}

// GetPassage godoc
// @Summary (User) Passage text and its questions, without answers
// @Tags User - Passages
// @Produce json
// @Param passage_id path int true "Passage ID"
// @Success 200 {object} dto.PassageDTO
// @Failure 404 {object} dto.ErrorResponse "Passage not found"
// @Router /passages/{passage_id} [get]
func (c *PassageController) GetPassage(ctx *gin.Context) {
	passageID, ok := controller.PassageID(ctx)
	if !ok {
		return
	}
	passage, err := c.passageService.GetPassage(ctx.Request.Context(), passageID)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to retrieve passage")
		return
	}
	ctx.JSON(http.StatusOK, passage)
}

// UploadRecording godoc
// @Summary (User) Upload a read-aloud recording of a passage
// @Tags User - Passages
// @Accept multipart/form-data
// @Produce json
// @Param passage_id path int true "Passage ID"
// @Param audio formData file true "Audio file"
// @Param user_id formData int true "Reader's user ID"
// @Param duration_seconds formData number false "Recording length"
// @Success 201 {object} dto.RecordingDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Failure 404 {object} dto.ErrorResponse "Passage not found"
// @Router /passages/{passage_id}/recordings [post]
func (c *PassageController) UploadRecording(ctx *gin.Context) {
	passageID, ok := controller.PassageID(ctx)
	if !ok {
		return
	}
	var req dto.RecordingCreateDTO
	if err := ctx.ShouldBind(&req); err != nil {
		log.Warn().Err(err).Msg("User UploadRecording: Failed to bind form")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid form data", Details: []string{err.Error()}})
		return
	}
	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing audio file", Details: []string{err.Error()}})
		return
	}
	if fileHeader.Size > MaxAudioBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Message: "Audio file too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		controller.RespondError(ctx, err, "Failed to read audio file")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(io.LimitReader(file, MaxAudioBytes))
	if err != nil {
		controller.RespondError(ctx, err, "Failed to read audio file")
		return
	}

	recording, err := c.recordingService.CreateRecording(ctx.Request.Context(), passageID, req, audio,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		controller.RespondError(ctx, err, "Failed to store recording")
		return
	}
	ctx.JSON(http.StatusCreated, recording)
}

func (c *PassageController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/passages", c.ListPassages)
	api.GET("/passages/:passage_id", c.GetPassage)
	api.POST("/passages/:passage_id/recordings", c.UploadRecording)
}
