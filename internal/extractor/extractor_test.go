package extractor

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

type countingExtractor struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *countingExtractor) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	n := c.inFlight.Add(1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	c.inFlight.Add(-1)
	return nil, nil
}

func TestSerialize_OneCallAtATime(t *testing.T) {
	inner := &countingExtractor{}
	ext := Serialize(inner)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ext.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.maxSeen.Load())
}

func TestSerialize_CancelledContext(t *testing.T) {
	ext := Serialize(&countingExtractor{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ext.Detect(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		out, err := Normalize([]float64{3, 4}, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, out[0], 1e-6)
		assert.InDelta(t, 0.8, out[1], 1e-6)
	})

	tests := []struct {
		name string
		in   []float64
		dim  int
	}{
		{"wrong dimension", []float64{1, 0, 0}, 2},
		{"zero vector", []float64{0, 0}, 2},
		{"nan component", []float64{math.NaN(), 1}, 2},
		{"inf component", []float64{math.Inf(1), 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.in, tt.dim)
			assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)
		})
	}
}
