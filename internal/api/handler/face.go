package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
	// MaxBodySize bounds a whole multipart request, batch uploads included.
	MaxBodySize = 64 * 1024 * 1024
)

// Browsers and cameras do not always label uploads; the decoder is the final
// judge of the content.
var validImageTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"image/jpeg":               true,
	"image/jpg":                true,
	"image/png":                true,
	"image/gif":                true,
	"image/bmp":                true,
	"image/tiff":               true,
	"image/webp":               true,
}

type FaceService interface {
	Enroll(ctx context.Context, ownerID string, raw []byte) (*domain.EnrollResult, error)
	EnrollBatch(ctx context.Context, ownerID string, images [][]byte) (*domain.BatchResult, error)
	Recognize(ctx context.Context, raw []byte, clientIP string) (*domain.RecognitionResult, error)
	ListFaces(ctx context.Context, ownerID string) ([]domain.FaceSummary, error)
	DeleteFace(ctx context.Context, faceID string) (int, error)
	DeleteFacesByOwner(ctx context.Context, ownerID string) (domain.OwnerDeletion, error)
}

// FaceHandler handles face-related requests
type FaceHandler struct {
	service FaceService
	logger  *slog.Logger
}

func NewFaceHandler(service FaceService, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		service: service,
		logger:  logger,
	}
}

type EnrollResponse struct {
	OK bool `json:"ok"`
	*domain.EnrollResult
}

type BatchResponse struct {
	OK bool `json:"ok"`
	*domain.BatchResult
}

type DeleteFaceResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

type DeleteOwnerResponse struct {
	OK bool `json:"ok"`
	domain.OwnerDeletion
}

// Enroll POST /api/faces
func (h *FaceHandler) Enroll(c *fiber.Ctx) error {
	ownerID := c.FormValue("user_id")

	file, err := c.FormFile("image")
	if err != nil {
		return domain.ErrInvalidInput.WithError(errors.New("image is required"))
	}
	raw, err := readImage(file)
	if err != nil {
		return err
	}

	result, err := h.service.Enroll(c.Context(), ownerID, raw)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		OK:           true,
		EnrollResult: result,
	})
}

// EnrollBatch POST /api/faces/batch
func (h *FaceHandler) EnrollBatch(c *fiber.Ctx) error {
	ownerID := c.FormValue("user_id")

	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrInvalidInput.WithError(errors.New("multipart form is required"))
	}
	files := form.File["images"]
	if len(files) == 0 {
		return domain.ErrInvalidInput.WithError(errors.New("no files"))
	}

	// An unreadable part becomes an empty image so it is reported at its index.
	images := make([][]byte, len(files))
	for i, file := range files {
		raw, err := readImage(file)
		if err != nil {
			h.logger.Debug("batch part rejected", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		images[i] = raw
	}

	result, err := h.service.EnrollBatch(c.Context(), ownerID, images)
	if err != nil {
		return err
	}

	return c.JSON(BatchResponse{
		OK:          true,
		BatchResult: result,
	})
}

// List GET /api/faces?user_id=
func (h *FaceHandler) List(c *fiber.Ctx) error {
	faces, err := h.service.ListFaces(c.Context(), c.Query("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(faces)
}

// Delete DELETE /api/faces/:face_id
func (h *FaceHandler) Delete(c *fiber.Ctx) error {
	faceID := strings.TrimSpace(c.Params("face_id"))

	n, err := h.service.DeleteFace(c.Context(), faceID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrFaceNotFound
	}

	return c.JSON(DeleteFaceResponse{
		OK:      true,
		Deleted: faceID,
	})
}

// DeleteByOwner DELETE /api/faces/by-user/:user_id
func (h *FaceHandler) DeleteByOwner(c *fiber.Ctx) error {
	result, err := h.service.DeleteFacesByOwner(c.Context(), c.Params("user_id"))
	if err != nil {
		return err
	}

	return c.JSON(DeleteOwnerResponse{
		OK:            true,
		OwnerDeletion: result,
	})
}

// readImage checks an uploaded part and returns its bytes.
func readImage(file *multipart.FileHeader) ([]byte, error) {
	if file.Size == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty file"))
	}
	if file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("file exceeds 10MB"))
	}

	contentType := strings.ToLower(file.Header.Get(fiber.HeaderContentType))
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("unsupported content type " + contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return raw, nil
}
