package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"image"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor"
)

// minSide is the smallest image edge in which the mock reports a face.
const minSide = 16

// Extractor is a deterministic stand-in for a real face model, used in
// development and tests. Every image of at least minSide pixels per edge
// yields one centered face whose embedding is derived from the pixel hash, so
// the same picture always matches itself with similarity 1.
type Extractor struct {
	dim int
}

func New(dim int) *Extractor {
	return &Extractor{dim: dim}
}

func (e *Extractor) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < minSide || h < minSide {
		return nil, nil
	}

	emb, err := extractor.Normalize(generateEmbedding(imaging.Clone(img).Pix, e.dim), e.dim)
	if err != nil {
		return nil, err
	}

	confidence := 0.99
	return []domain.Detection{{
		BBox: domain.BoundingBox{
			X0: float64(w) * 0.1,
			Y0: float64(h) * 0.1,
			X1: float64(w) * 0.9,
			Y1: float64(h) * 0.9,
		},
		Embedding:  emb,
		Confidence: &confidence,
	}}, nil
}

// generateEmbedding expands the sha256 of the pixels into dim values in [-1,1].
func generateEmbedding(pix []byte, dim int) []float64 {
	seed := sha256.Sum256(pix)
	embedding := make([]float64, dim)

	block := seed
	for i := 0; i < dim; i++ {
		off := (i * 2) % len(block)
		if i > 0 && off == 0 {
			block = sha256.Sum256(block[:])
		}
		v := binary.BigEndian.Uint16(block[off : off+2])
		embedding[i] = (float64(v)/65535.0)*2 - 1
	}

	return embedding
}

var _ extractor.Extractor = (*Extractor)(nil)
