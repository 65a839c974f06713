package handler

import (
	"context"
	"errors"
	"io"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
)

var imageFilePattern = regexp.MustCompile(`^F_[0-9a-f]+\.jpg$`)

// ImageOpener streams stored face images.
type ImageOpener interface {
	OpenImage(ctx context.Context, ref string) (io.ReadCloser, error)
}

type StaticHandler struct {
	images ImageOpener
}

func NewStaticHandler(images ImageOpener) *StaticHandler {
	return &StaticHandler{images: images}
}

// FaceImage GET /static/faces/:user_id/:file
func (h *StaticHandler) FaceImage(c *fiber.Ctx) error {
	ownerID, err := domain.NormalizeOwnerID(c.Params("user_id"))
	if err != nil {
		return domain.ErrNotFound
	}
	file := c.Params("file")
	if !imageFilePattern.MatchString(file) {
		return domain.ErrNotFound
	}

	rc, err := h.images.OpenImage(c.Context(), ownerID+"/"+file)
	if err != nil {
		if errors.Is(err, media.ErrImageNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrStorageFailure.WithError(err)
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	// fasthttp closes rc once the body is written
	return c.SendStream(rc)
}
