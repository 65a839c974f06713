package extractor

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// Extractor turns a decoded image into zero or more face detections, each with
// a bounding box and a unit-normalized embedding.
type Extractor interface {
	Detect(ctx context.Context, img image.Image) ([]domain.Detection, error)
}

// Serialize wraps an extractor that is not safe for concurrent use so that
// only one Detect call runs at a time.
func Serialize(e Extractor) Extractor {
	return &serialized{next: e}
}

type serialized struct {
	mu   sync.Mutex
	next Extractor
}

func (s *serialized) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.next.Detect(ctx, img)
}

// Normalize scales v to unit length and narrows it to float32. It fails when v
// has the wrong dimension, a zero norm or non-finite components.
func Normalize(v []float64, dim int) ([]float32, error) {
	if len(v) != dim {
		return nil, domain.ErrInvalidEmbedding.WithError(
			fmt.Errorf("expected %d dimensions, got %d", dim, len(v)))
	}

	var norm float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("non-finite component"))
		}
		norm += x * x
	}
	if norm == 0 {
		return nil, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("zero vector"))
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out, nil
}
