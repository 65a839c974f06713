package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
)

const (
	DefaultThreshold = 0.75
	DefaultTopK      = 5
)

// Matcher ranks the detected faces of a probe image against the whole gallery.
// Every call scans the current gallery; nothing is cached between calls.
type Matcher struct {
	gallery   GalleryStore
	extractor extractor.Extractor
	threshold float64
	topK      int
}

func NewMatcher(gallery GalleryStore, ext extractor.Extractor) *Matcher {
	return &Matcher{
		gallery:   gallery,
		extractor: ext,
		threshold: DefaultThreshold,
		topK:      DefaultTopK,
	}
}

func (m *Matcher) WithThreshold(threshold float64) *Matcher {
	m.threshold = threshold
	return m
}

func (m *Matcher) WithTopK(k int) *Matcher {
	if k > 0 {
		m.topK = k
	}
	return m
}

func (m *Matcher) Threshold() float64 { return m.threshold }

func (m *Matcher) TopK() int { return m.topK }

func (m *Matcher) Recognize(ctx context.Context, raw []byte) (*domain.RecognitionResult, error) {
	start := time.Now()

	result := &domain.RecognitionResult{
		RequestID: uuid.NewString(),
		Faces:     []domain.FaceMatch{},
		Threshold: m.threshold,
	}

	img, err := media.Decode(raw)
	if err != nil {
		return nil, err
	}

	detections, err := m.extractor.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(detections) == 0 {
		result.LatencyMs = time.Since(start).Milliseconds()
		return result, nil
	}

	g, err := m.gallery.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	result.GallerySize = g.Len()
	if g.Len() == 0 {
		result.GalleryEmpty = true
		result.LatencyMs = time.Since(start).Milliseconds()
		return result, nil
	}

	for _, det := range detections {
		if len(det.Embedding) != g.Dim {
			return nil, domain.ErrInvalidEmbedding.WithError(
				fmt.Errorf("probe has %d dimensions, gallery has %d", len(det.Embedding), g.Dim))
		}
		result.Faces = append(result.Faces, m.match(g, det))
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	return result, nil
}

func (m *Matcher) match(g *domain.Gallery, det domain.Detection) domain.FaceMatch {
	scored := make([]domain.Candidate, g.Len())
	for i := range scored {
		scored[i] = domain.Candidate{
			FaceID:     g.FaceIDs[i],
			OwnerID:    g.OwnerIDs[i],
			Similarity: cosine(det.Embedding, g.Vector(i)),
		}
	}

	slices.SortStableFunc(scored, func(a, b domain.Candidate) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	top := scored[:min(m.topK, len(scored))]

	match := domain.FaceMatch{
		BBox:       det.BBox,
		Candidates: slices.Clip(top),
	}
	if top[0].Similarity >= m.threshold {
		best := top[0]
		match.Best = &best
	}
	return match
}

// cosine scores two stored embeddings. Vectors are unit length only up to
// float32 rounding, so the float64 sum is divided by the actual norms and
// the score is reported at the embeddings' single precision. A vector
// scored against itself is exactly 1.
func cosine(a, b []float32) float64 {
	var sum, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		sum += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := float64(float32(sum / (math.Sqrt(na) * math.Sqrt(nb))))
	return max(-1, min(1, score))
}
