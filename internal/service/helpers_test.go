package service

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/database"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/notify"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/repository"
)

const testDim = 4

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedExtractor returns the detections registered for the probe's width.
// Widths without a script yield no faces.
type scriptedExtractor struct {
	byWidth map[int][]domain.Detection
}

func (e *scriptedExtractor) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.byWidth[img.Bounds().Dx()], nil
}

func basis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func detection(x0, y0, x1, y1 float64, emb []float32) domain.Detection {
	return domain.Detection{
		BBox:      domain.BoundingBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Embedding: emb,
	}
}

func jpegOfWidth(t *testing.T, width int) []byte {
	t.Helper()
	img := imaging.New(width, 100, color.NRGBA{R: 200, G: 180, B: 160, A: 255})
	raw, err := media.EncodeJPEG(img)
	require.NoError(t, err)
	return raw
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.RecognitionEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.RecognitionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Close() {}

func (n *recordingNotifier) Events() []domain.RecognitionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.RecognitionEvent(nil), n.events...)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, audit *domain.RecognitionAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

type testEngine struct {
	svc       *FaceService
	store     *gallery.Store
	matcher   *Matcher
	extractor *scriptedExtractor
	notifier  *recordingNotifier
	facesDir  string
}

// newTestEngine wires the real gallery over a SQLite file and a local image
// directory, with a scripted extractor in front.
func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	dir := t.TempDir()
	logger := discardLogger()

	db, err := database.OpenSQLite(filepath.Join(dir, "faces.db"), logger)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	facesDir := filepath.Join(dir, "faces")
	images, err := media.NewLocalStore(facesDir)
	require.NoError(t, err)

	store := gallery.NewStore(repository.NewSQLiteFaceRepository(db), images, testDim, logger)
	ext := &scriptedExtractor{byWidth: map[int][]domain.Detection{}}
	matcher := NewMatcher(store, ext)
	notifier := &recordingNotifier{}

	svc := NewFaceService(
		store,
		NewEnroller(store, ext, logger),
		matcher,
		repository.NewSQLiteRecognitionAuditRepository(db),
		notifier,
		logger,
	)

	return &testEngine{
		svc:       svc,
		store:     store,
		matcher:   matcher,
		extractor: ext,
		notifier:  notifier,
		facesDir:  facesDir,
	}
}

// script registers the detections for images of the given width and returns
// such an image.
func (e *testEngine) script(t *testing.T, width int, dets ...domain.Detection) []byte {
	t.Helper()
	e.extractor.byWidth[width] = dets
	return jpegOfWidth(t, width)
}

var _ notify.Notifier = (*recordingNotifier)(nil)
