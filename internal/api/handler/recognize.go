package handler

import (
	"errors"
	"log/slog"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

const galleryEmpty = "gallery_empty"

type MatchResponse struct {
	FaceID     string  `json:"face_id"`
	OwnerID    string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

type FaceMatchResponse struct {
	BBox []float64       `json:"bbox"`
	Top  []MatchResponse `json:"top"`
	Best *MatchResponse  `json:"best"`
}

type RecognizeResponse struct {
	RequestID string              `json:"request_id"`
	Faces     []FaceMatchResponse `json:"faces"`
	Error     string              `json:"error,omitempty"`
	LatencyMs int64               `json:"latency_ms"`
}

type RecognizeHandler struct {
	service FaceService
	logger  *slog.Logger
}

func NewRecognizeHandler(service FaceService, logger *slog.Logger) *RecognizeHandler {
	return &RecognizeHandler{
		service: service,
		logger:  logger,
	}
}

// Recognize POST /api/recognize
func (h *RecognizeHandler) Recognize(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return domain.ErrInvalidInput.WithError(errors.New("image is required"))
	}
	raw, err := readImage(file)
	if err != nil {
		return err
	}

	result, err := h.service.Recognize(c.Context(), raw, c.IP())
	if err != nil {
		return err
	}

	h.logger.Debug("recognition completed",
		slog.String("request_id", result.RequestID),
		slog.Int("faces", len(result.Faces)),
		slog.Int("gallery_size", result.GallerySize),
		slog.Int64("latency_ms", result.LatencyMs),
	)

	return c.JSON(toRecognizeResponse(result))
}

func toRecognizeResponse(result *domain.RecognitionResult) RecognizeResponse {
	resp := RecognizeResponse{
		RequestID: result.RequestID,
		Faces:     make([]FaceMatchResponse, 0, len(result.Faces)),
		LatencyMs: result.LatencyMs,
	}
	if result.GalleryEmpty {
		resp.Error = galleryEmpty
	}

	for _, f := range result.Faces {
		m := FaceMatchResponse{
			BBox: f.BBox.Slice(),
			Top:  make([]MatchResponse, 0, len(f.Candidates)),
		}
		for _, c := range f.Candidates {
			m.Top = append(m.Top, toMatch(c))
		}
		if f.Best != nil {
			best := toMatch(*f.Best)
			m.Best = &best
		}
		resp.Faces = append(resp.Faces, m)
	}
	return resp
}

func toMatch(c domain.Candidate) MatchResponse {
	return MatchResponse{
		FaceID:     c.FaceID,
		OwnerID:    c.OwnerID,
		Similarity: round4(c.Similarity),
	}
}

// round4 is applied to the response only; acceptance uses the exact value.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
