package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// FaceRepository stores faces in Postgres with the embedding in a pgvector
// column.
type FaceRepository struct {
	pool PgxPool
}

func NewFaceRepository(pool PgxPool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

func (r *FaceRepository) Insert(ctx context.Context, rec *domain.FaceRecord) error {
	query := `
		INSERT INTO faces (face_id, owner_id, embedding, image_ref, quality, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.FaceID,
		rec.OwnerID,
		pgvector.NewVector(rec.Embedding),
		rec.ImageRef,
		rec.Quality,
	).Scan(&rec.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey.WithError(fmt.Errorf("face_id %s", rec.FaceID))
		}
		return fmt.Errorf("insert face: %w", err)
	}

	return nil
}

func (r *FaceRepository) DeleteOne(ctx context.Context, faceID string) (*DeletedFace, error) {
	query := `DELETE FROM faces WHERE face_id = $1 RETURNING owner_id, image_ref`

	rows, err := r.pool.Query(ctx, query, faceID)
	if err != nil {
		return nil, fmt.Errorf("delete face: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("delete face: %w", err)
		}
		return nil, nil
	}

	deleted := DeletedFace{FaceID: faceID}
	if err := rows.Scan(&deleted.OwnerID, &deleted.ImageRef); err != nil {
		return nil, fmt.Errorf("scan deleted face: %w", err)
	}

	return &deleted, nil
}

func (r *FaceRepository) DeleteByOwner(ctx context.Context, ownerID string) ([]DeletedFace, error) {
	query := `DELETE FROM faces WHERE owner_id = $1 RETURNING face_id, image_ref`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("delete faces by owner: %w", err)
	}
	defer rows.Close()

	var deleted []DeletedFace
	for rows.Next() {
		d := DeletedFace{OwnerID: ownerID}
		if err := rows.Scan(&d.FaceID, &d.ImageRef); err != nil {
			return nil, fmt.Errorf("scan deleted face: %w", err)
		}
		deleted = append(deleted, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete faces by owner: %w", err)
	}

	return deleted, nil
}

func (r *FaceRepository) List(ctx context.Context, ownerID string) ([]domain.FaceSummary, error) {
	query := `
		SELECT face_id, owner_id, image_ref, quality, created_at
		FROM faces
		ORDER BY created_at DESC, face_id DESC
	`
	args := []any{}
	if ownerID != "" {
		query = `
		SELECT face_id, owner_id, image_ref, quality, created_at
		FROM faces
		WHERE owner_id = $1
		ORDER BY created_at DESC, face_id DESC
	`
		args = append(args, ownerID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	faces := []domain.FaceSummary{}
	for rows.Next() {
		var f domain.FaceSummary
		if err := rows.Scan(&f.FaceID, &f.OwnerID, &f.ImageRef, &f.Quality, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		f.ImageURL = domain.ImageURL(f.OwnerID, f.FaceID)
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}

	return faces, nil
}

// ScanAll materializes every enrolled embedding. Rows whose vector does not
// have dim components are counted in Gallery.Skipped and left out.
func (r *FaceRepository) ScanAll(ctx context.Context, dim int) (*domain.Gallery, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM faces`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count faces: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT face_id, owner_id, embedding FROM faces`)
	if err != nil {
		return nil, fmt.Errorf("scan faces: %w", err)
	}
	defer rows.Close()

	gallery := domain.NewGallery(dim, count)
	for rows.Next() {
		var (
			faceID, ownerID string
			embedding       *pgvector.Vector
		)
		if err := rows.Scan(&faceID, &ownerID, &embedding); err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		var vec []float32
		if embedding != nil {
			vec = embedding.Slice()
		}
		gallery.Add(faceID, ownerID, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan faces: %w", err)
	}

	return gallery, nil
}

func (r *FaceRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var _ FaceRepositoryInterface = (*FaceRepository)(nil)
