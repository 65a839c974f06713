package deepface

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor"
)

// Extractor implements extractor.Extractor against a DeepFace HTTP sidecar.
// It holds no model state and is safe for concurrent use.
type Extractor struct {
	client *Client
	dim    int
}

func New(config Config) *Extractor {
	if config.Dim == 0 {
		config.Dim = DefaultConfig().Dim
	}
	return &Extractor{
		client: NewClient(config),
		dim:    config.Dim,
	}
}

func (e *Extractor) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, domain.ErrExtractorFailure.WithError(fmt.Errorf("encode image: %w", err))
	}

	resp, err := e.client.Represent(ctx, base64.StdEncoding.EncodeToString(buf.Bytes()))
	if err != nil {
		if isNoFace(err) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, domain.ErrExtractorFailure.WithError(fmt.Errorf("represent: %w", err))
	}

	detections := make([]domain.Detection, 0, len(resp.Results))
	for i, r := range resp.Results {
		emb, err := extractor.Normalize(r.Embedding, e.dim)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		a := r.FacialArea
		detections = append(detections, domain.Detection{
			BBox: domain.BoundingBox{
				X0: float64(a.X),
				Y0: float64(a.Y),
				X1: float64(a.X + a.W),
				Y1: float64(a.Y + a.H),
			},
			Embedding:  emb,
			Confidence: r.FaceConfidence,
		})
	}

	return detections, nil
}

var _ extractor.Extractor = (*Extractor)(nil)
