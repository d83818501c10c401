package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/middleware"
	"github.com/yigit/assignhub/internal/pkg/filestorage"
)

// multipart framing allowance on top of the file itself
const multipartOverhead = 64 << 10

// ImageController accepts image uploads whose URLs are then used as
// profilePhoto or submissionUrl.
type ImageController struct {
	storage       filestorage.FileStorage
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewImageController creates a new ImageController
func NewImageController(storage filestorage.FileStorage, maxUploadSize int64, logger zerolog.Logger) *ImageController {
	return &ImageController{
		storage:       storage,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// UploadImage stores one image
// @Summary Upload an image
// @Description Stores a JPEG, PNG, GIF or WEBP image and returns its public URL
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image to upload"
// @Success 201 {object} dto.APIResponse{data=filestorage.FileInfo} "Image uploaded"
// @Failure 400 {object} dto.ErrorResponse "Missing file or unsupported type"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Router /images [post]
func (c *ImageController) UploadImage(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadSize+multipartOverhead)
	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.tooLarge(ctx)
			return
		}
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid or missing file").WithField("image").WithDetails(err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
		return
	}
	if fileHeader.Size > c.maxUploadSize {
		c.tooLarge(ctx)
		return
	}

	info, err := c.storage.SaveFile(fileHeader)
	if err != nil {
		if errors.Is(err, filestorage.ErrUnsupportedType) {
			detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Only JPEG, PNG, GIF and WEBP images are allowed").WithField("image")
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewFailureResponse(detail))
			return
		}
		c.logger.Error().Err(err).Str("userID", caller.UserID.String()).Msg("Image upload failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("userID", caller.UserID.String()).Str("url", info.URL).Msg("Image uploaded")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(info, "Image uploaded successfully"))
}

func (c *ImageController) tooLarge(ctx *gin.Context) {
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, fmt.Sprintf("Image must not exceed %d bytes", c.maxUploadSize)).WithField("image")
	ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewFailureResponse(detail))
}
