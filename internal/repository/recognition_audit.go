package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

type RecognitionAuditRepository struct {
	pool PgxPool
}

func NewRecognitionAuditRepository(pool PgxPool) *RecognitionAuditRepository {
	return &RecognitionAuditRepository{pool: pool}
}

// Create inserts a new recognition audit record
func (r *RecognitionAuditRepository) Create(ctx context.Context, audit *domain.RecognitionAudit) error {
	query := `
		INSERT INTO recognition_audits (
			id, request_id, faces_detected, accepted_count, gallery_size,
			top_match_owner_id, top_match_face_id, top_match_similarity,
			threshold, top_k, latency_ms, client_ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`

	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}

	err := r.pool.QueryRow(ctx, query,
		audit.ID,
		audit.RequestID,
		audit.FacesDetected,
		audit.AcceptedCount,
		audit.GallerySize,
		audit.TopMatchOwnerID,
		audit.TopMatchFaceID,
		audit.TopMatchSimilarity,
		audit.Threshold,
		audit.TopK,
		audit.LatencyMs,
		audit.ClientIP,
	).Scan(&audit.CreatedAt)

	if err != nil {
		return fmt.Errorf("create recognition audit: %w", err)
	}

	return nil
}

var _ RecognitionAuditRepositoryInterface = (*RecognitionAuditRepository)(nil)
