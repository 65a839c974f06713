package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// FaceModel is the SQLite row of an enrolled face. The embedding is a
// little-endian float32 BLOB.
type FaceModel struct {
	FaceID    string    `gorm:"column:face_id;primaryKey"`
	OwnerID   string    `gorm:"column:owner_id;not null;index:idx_faces_owner_id"`
	Embedding []byte    `gorm:"column:embedding;not null"`
	ImageRef  string    `gorm:"column:image_ref;not null"`
	Quality   *float64  `gorm:"column:quality"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_faces_created_at"`
}

func (FaceModel) TableName() string {
	return "faces"
}

// RecognitionAuditModel is the SQLite row of a recognition audit.
type RecognitionAuditModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	RequestID          string    `gorm:"column:request_id;not null"`
	FacesDetected      int       `gorm:"column:faces_detected;not null"`
	AcceptedCount      int       `gorm:"column:accepted_count;not null"`
	GallerySize        int       `gorm:"column:gallery_size;not null"`
	TopMatchOwnerID    *string   `gorm:"column:top_match_owner_id"`
	TopMatchFaceID     *string   `gorm:"column:top_match_face_id"`
	TopMatchSimilarity *float64  `gorm:"column:top_match_similarity"`
	Threshold          float64   `gorm:"column:threshold;not null"`
	TopK               int       `gorm:"column:top_k;not null"`
	LatencyMs          int64     `gorm:"column:latency_ms;not null"`
	ClientIP           string    `gorm:"column:client_ip"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;index"`
}

func (RecognitionAuditModel) TableName() string {
	return "recognition_audits"
}

// EncodeEmbedding packs a vector as little-endian float32 bytes.
func EncodeEmbedding(embedding []float32) []byte {
	data := make([]byte, len(embedding)*4)
	for i, val := range embedding {
		offset := i * 4
		bits := math.Float32bits(val)
		data[offset] = byte(bits)
		data[offset+1] = byte(bits >> 8)
		data[offset+2] = byte(bits >> 16)
		data[offset+3] = byte(bits >> 24)
	}
	return data
}

// DecodeEmbedding unpacks little-endian float32 bytes. It returns nil when the
// blob length is not a multiple of four.
func DecodeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		offset := i * 4
		bits := uint32(data[offset]) |
			uint32(data[offset+1])<<8 |
			uint32(data[offset+2])<<16 |
			uint32(data[offset+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

// SQLiteFaceRepository stores faces in a local SQLite file through gorm.
type SQLiteFaceRepository struct {
	db *gorm.DB
}

func NewSQLiteFaceRepository(db *gorm.DB) *SQLiteFaceRepository {
	return &SQLiteFaceRepository{db: db}
}

func (r *SQLiteFaceRepository) Insert(ctx context.Context, rec *domain.FaceRecord) error {
	model := FaceModel{
		FaceID:    rec.FaceID,
		OwnerID:   rec.OwnerID,
		Embedding: EncodeEmbedding(rec.Embedding),
		ImageRef:  rec.ImageRef,
		Quality:   rec.Quality,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return domain.ErrDuplicateKey.WithError(fmt.Errorf("face_id %s", rec.FaceID))
		}
		return fmt.Errorf("insert face: %w", err)
	}

	rec.CreatedAt = model.CreatedAt
	return nil
}

func (r *SQLiteFaceRepository) DeleteOne(ctx context.Context, faceID string) (*DeletedFace, error) {
	var deleted *DeletedFace

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model FaceModel
		res := tx.Select("face_id", "owner_id", "image_ref").
			Where("face_id = ?", faceID).
			Limit(1).
			Find(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		del := tx.Where("face_id = ?", faceID).Delete(&FaceModel{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return nil
		}

		deleted = &DeletedFace{FaceID: model.FaceID, OwnerID: model.OwnerID, ImageRef: model.ImageRef}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete face: %w", err)
	}

	return deleted, nil
}

func (r *SQLiteFaceRepository) DeleteByOwner(ctx context.Context, ownerID string) ([]DeletedFace, error) {
	var deleted []DeletedFace

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []FaceModel
		if err := tx.Select("face_id", "image_ref").
			Where("owner_id = ?", ownerID).
			Order("face_id").
			Find(&models).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}

		ids := make([]string, len(models))
		for i, m := range models {
			ids[i] = m.FaceID
		}
		if err := tx.Where("face_id IN ?", ids).Delete(&FaceModel{}).Error; err != nil {
			return err
		}

		deleted = make([]DeletedFace, len(models))
		for i, m := range models {
			deleted[i] = DeletedFace{FaceID: m.FaceID, OwnerID: ownerID, ImageRef: m.ImageRef}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete faces by owner: %w", err)
	}

	return deleted, nil
}

func (r *SQLiteFaceRepository) List(ctx context.Context, ownerID string) ([]domain.FaceSummary, error) {
	q := r.db.WithContext(ctx).
		Select("face_id", "owner_id", "image_ref", "quality", "created_at").
		Order("created_at DESC").
		Order("face_id DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	var models []FaceModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}

	faces := make([]domain.FaceSummary, 0, len(models))
	for _, m := range models {
		faces = append(faces, domain.FaceSummary{
			FaceID:    m.FaceID,
			OwnerID:   m.OwnerID,
			ImageRef:  m.ImageRef,
			ImageURL:  domain.ImageURL(m.OwnerID, m.FaceID),
			Quality:   m.Quality,
			CreatedAt: m.CreatedAt,
		})
	}
	return faces, nil
}

func (r *SQLiteFaceRepository) ScanAll(ctx context.Context, dim int) (*domain.Gallery, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&FaceModel{}).
		Select("face_id", "owner_id", "embedding").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("scan faces: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	gallery := domain.NewGallery(dim, 0)
	for rows.Next() {
		var (
			faceID, ownerID string
			blob            []byte
		)
		if err := rows.Scan(&faceID, &ownerID, &blob); err != nil {
			return nil, fmt.Errorf("scan face row: %w", err)
		}
		gallery.Add(faceID, ownerID, DecodeEmbedding(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan faces: %w", err)
	}

	return gallery, nil
}

func (r *SQLiteFaceRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SQLiteRecognitionAuditRepository writes recognition audits to SQLite.
type SQLiteRecognitionAuditRepository struct {
	db *gorm.DB
}

func NewSQLiteRecognitionAuditRepository(db *gorm.DB) *SQLiteRecognitionAuditRepository {
	return &SQLiteRecognitionAuditRepository{db: db}
}

func (r *SQLiteRecognitionAuditRepository) Create(ctx context.Context, audit *domain.RecognitionAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	audit.CreatedAt = time.Now().UTC()

	model := RecognitionAuditModel{
		ID:                 audit.ID,
		RequestID:          audit.RequestID,
		FacesDetected:      audit.FacesDetected,
		AcceptedCount:      audit.AcceptedCount,
		GallerySize:        audit.GallerySize,
		TopMatchOwnerID:    audit.TopMatchOwnerID,
		TopMatchFaceID:     audit.TopMatchFaceID,
		TopMatchSimilarity: audit.TopMatchSimilarity,
		Threshold:          audit.Threshold,
		TopK:               audit.TopK,
		LatencyMs:          audit.LatencyMs,
		ClientIP:           audit.ClientIP,
		CreatedAt:          audit.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create recognition audit: %w", err)
	}
	return nil
}

var (
	_ FaceRepositoryInterface             = (*SQLiteFaceRepository)(nil)
	_ RecognitionAuditRepositoryInterface = (*SQLiteRecognitionAuditRepository)(nil)
)
