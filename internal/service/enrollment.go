package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/extractor"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/quality"
)

// Enroller turns uploaded photos into gallery records.
type Enroller struct {
	gallery   GalleryStore
	extractor extractor.Extractor
	logger    *slog.Logger
}

func NewEnroller(gallery GalleryStore, ext extractor.Extractor, logger *slog.Logger) *Enroller {
	return &Enroller{
		gallery:   gallery,
		extractor: ext,
		logger:    logger,
	}
}

func (e *Enroller) Enroll(ctx context.Context, ownerID string, raw []byte) (*domain.EnrollResult, error) {
	owner, err := domain.NormalizeOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	return e.enroll(ctx, owner, raw)
}

// EnrollBatch enrolls every image independently and in order. A failing image
// is reported in its ItemResult and does not stop the rest. When ctx is
// canceled the images not yet processed are reported as canceled and the
// partial result is returned together with ctx.Err().
func (e *Enroller) EnrollBatch(ctx context.Context, ownerID string, images [][]byte) (*domain.BatchResult, error) {
	owner, err := domain.NormalizeOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.ErrInvalidInput.WithError(errors.New("no images"))
	}

	result := &domain.BatchResult{
		OwnerID: owner,
		Total:   len(images),
		Results: make([]domain.ItemResult, 0, len(images)),
	}

	for i, raw := range images {
		if err := ctx.Err(); err != nil {
			result.Results = append(result.Results, CanceledItems(i, len(images))...)
			return result, err
		}

		enrolled, err := e.enroll(ctx, owner, raw)
		if err != nil {
			e.logger.Info("batch item rejected",
				slog.String("user_id", owner),
				slog.Int("index", i),
				slog.Any("error", err),
			)
			result.Results = append(result.Results, ItemError(i, err))
			continue
		}

		result.Added++
		result.Results = append(result.Results, ItemOK(i, enrolled))
	}

	return result, nil
}

func ItemOK(index int, enrolled *domain.EnrollResult) domain.ItemResult {
	quality := enrolled.Quality
	return domain.ItemResult{
		Index:    index,
		Status:   domain.ItemStatusOK,
		FaceID:   enrolled.FaceID,
		Quality:  &quality,
		ImageURL: enrolled.ImageURL,
	}
}

// ItemError renders a failed enrollment as a batch item, using the lower-cased
// error code. Cancellation is reported as canceled and errors without a code
// as internal_error.
func ItemError(index int, err error) domain.ItemResult {
	item := domain.ItemResult{
		Index:   index,
		Status:  domain.ItemStatusError,
		Error:   strings.ToLower(domain.ErrInternal.Code),
		Message: domain.ErrInternal.Message,
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		item.Error = domain.ItemErrorCanceled
		item.Message = canceledMessage
		return item
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		item.Error = strings.ToLower(appErr.Code)
		item.Message = appErr.Message
	}
	return item
}

const canceledMessage = "Enrollment was canceled before this image was stored"

// CanceledItems reports the images from index from up to total as canceled.
func CanceledItems(from, total int) []domain.ItemResult {
	items := make([]domain.ItemResult, 0, total-from)
	for i := from; i < total; i++ {
		items = append(items, domain.ItemResult{
			Index:   i,
			Status:  domain.ItemStatusError,
			Error:   domain.ItemErrorCanceled,
			Message: canceledMessage,
		})
	}
	return items
}

func (e *Enroller) enroll(ctx context.Context, ownerID string, raw []byte) (*domain.EnrollResult, error) {
	img, err := media.Decode(raw)
	if err != nil {
		return nil, err
	}

	detections, err := e.extractor.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(detections) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	det := largestDetection(detections)
	bounds := img.Bounds()
	score := quality.Score(det.BBox, bounds.Dx(), bounds.Dy())
	faceID := domain.NewFaceID()

	ref, err := e.gallery.WriteImage(ctx, ownerID, faceID, img)
	if err != nil {
		return nil, err
	}

	rec := &domain.FaceRecord{
		FaceID:    faceID,
		OwnerID:   ownerID,
		Embedding: det.Embedding,
		ImageRef:  ref,
		Quality:   &score,
	}
	if err := e.gallery.Insert(ctx, rec); err != nil {
		e.gallery.RemoveImage(ctx, ref)
		return nil, err
	}

	attrs := []any{
		slog.String("face_id", faceID),
		slog.String("user_id", ownerID),
		slog.Float64("quality", score),
		slog.Int("detections", len(detections)),
	}
	if det.Confidence != nil {
		attrs = append(attrs, slog.Float64("confidence", *det.Confidence))
	}
	e.logger.Info("face enrolled", attrs...)

	return &domain.EnrollResult{
		FaceID:    faceID,
		OwnerID:   ownerID,
		Quality:   score,
		ImageRef:  ref,
		ImageURL:  domain.ImageURL(ownerID, faceID),
		CreatedAt: rec.CreatedAt,
	}, nil
}

// largestDetection picks the detection with the biggest box. Ties keep the
// first one seen.
func largestDetection(detections []domain.Detection) domain.Detection {
	best := 0
	for i := 1; i < len(detections); i++ {
		if detections[i].BBox.Area() > detections[best].BBox.Area() {
			best = i
		}
	}
	return detections[best]
}
