package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/service"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

type photoResolver interface {
	Resolve(ctx context.Context, token string) (*service.PhotoDownload, error)
}

// PhotoHandler streams punch photos behind short-lived signed links.
type PhotoHandler struct {
	photos photoResolver
}

// NewPhotoHandler constructs the handler.
func NewPhotoHandler(photos photoResolver) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// Download godoc
// @Summary Punch photo via signed token
// @Tags Attendance
// @Produce jpeg
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /attendance/photos/{token} [get]
func (h *PhotoHandler) Download(c *gin.Context) {
	photo, err := h.photos.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer photo.File.Close() //nolint:errcheck
	response.File(c, photo.File, photo.Size, photo.Filename, "image/jpeg", true)
}
