package service

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// GalleryStore is the durable face collection the pipelines work against.
// *gallery.Store implements it.
type GalleryStore interface {
	Insert(ctx context.Context, rec *domain.FaceRecord) error
	DeleteOne(ctx context.Context, faceID string) (int, error)
	DeleteByOwner(ctx context.Context, ownerID string) (domain.OwnerDeletion, error)
	List(ctx context.Context, ownerID string) ([]domain.FaceSummary, error)
	ScanAll(ctx context.Context) (*domain.Gallery, error)
	WriteImage(ctx context.Context, ownerID, faceID string, img image.Image) (string, error)
	RemoveImage(ctx context.Context, ref string)
}

type RecognitionAuditRepositoryInterface interface {
	Create(ctx context.Context, audit *domain.RecognitionAudit) error
}
