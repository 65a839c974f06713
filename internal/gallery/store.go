// Package gallery is the durable collection of enrolled faces: face rows in
// the repository plus their source images in the image store.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/media"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/repository"
)

type Store struct {
	repo   repository.FaceRepositoryInterface
	images media.Store
	dim    int
	logger *slog.Logger
}

func NewStore(repo repository.FaceRepositoryInterface, images media.Store, dim int, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		images: images,
		dim:    dim,
		logger: logger,
	}
}

// storageError keeps domain errors as they are and classifies everything else
// as a storage failure.
func storageError(op string, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrStorageFailure.WithError(fmt.Errorf("%s: %w", op, err))
}

func (s *Store) Insert(ctx context.Context, rec *domain.FaceRecord) error {
	if rec.FaceID == "" || rec.OwnerID == "" || len(rec.Embedding) != s.dim {
		return domain.ErrInvalidEmbedding.WithError(
			fmt.Errorf("record %q has %d dimensions, want %d", rec.FaceID, len(rec.Embedding), s.dim))
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return storageError("insert face", err)
	}
	return nil
}

// DeleteOne removes a face and returns how many rows went away (0 or 1). The
// image is removed afterwards on a best-effort basis.
func (s *Store) DeleteOne(ctx context.Context, faceID string) (int, error) {
	deleted, err := s.repo.DeleteOne(ctx, faceID)
	if err != nil {
		return 0, storageError("delete face", err)
	}
	if deleted == nil {
		return 0, nil
	}

	s.RemoveImage(ctx, deleted.ImageRef)
	return 1, nil
}

// DeleteByOwner removes every face of the owner. Image removal failures are
// logged and do not change the result.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (domain.OwnerDeletion, error) {
	deleted, err := s.repo.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return domain.OwnerDeletion{}, storageError("delete faces by owner", err)
	}

	result := domain.OwnerDeletion{
		OwnerID: ownerID,
		Deleted: len(deleted),
		FaceIDs: make([]string, 0, len(deleted)),
	}
	for _, d := range deleted {
		result.FaceIDs = append(result.FaceIDs, d.FaceID)
		s.RemoveImage(ctx, d.ImageRef)
	}

	if pruner, ok := s.images.(media.Pruner); ok && len(deleted) > 0 {
		if err := pruner.PruneOwner(ctx, ownerID); err != nil {
			s.logger.Warn("failed to prune owner image dir",
				slog.String("user_id", ownerID),
				slog.Any("error", err),
			)
		}
	}

	return result, nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]domain.FaceSummary, error) {
	faces, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, storageError("list faces", err)
	}
	return faces, nil
}

// ScanAll loads the whole gallery for matching.
func (s *Store) ScanAll(ctx context.Context) (*domain.Gallery, error) {
	g, err := s.repo.ScanAll(ctx, s.dim)
	if err != nil {
		return nil, storageError("scan gallery", err)
	}
	if g.Skipped > 0 {
		s.logger.Warn("skipped malformed gallery rows",
			slog.Int("skipped", g.Skipped),
			slog.Int("dim", s.dim),
		)
	}
	return g, nil
}

// WriteImage persists the face image at its deterministic key.
func (s *Store) WriteImage(ctx context.Context, ownerID, faceID string, img image.Image) (string, error) {
	ref, err := s.images.Write(ctx, media.ImageKey(ownerID, faceID), img)
	if err != nil {
		return "", storageError("write image", err)
	}
	return ref, nil
}

// RemoveImage deletes an image and only logs when that fails.
func (s *Store) RemoveImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.logger.Warn("failed to remove face image",
			slog.String("image_ref", ref),
			slog.Any("error", err),
		)
	}
}

func (s *Store) OpenImage(ctx context.Context, ref string) (io.ReadCloser, error) {
	return s.images.Open(ctx, ref)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Store) Dim() int {
	return s.dim
}
