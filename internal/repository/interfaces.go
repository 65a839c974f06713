package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the Postgres repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// DeletedFace identifies a removed row and the image it pointed to.
type DeletedFace struct {
	FaceID   string
	OwnerID  string
	ImageRef string
}

// FaceRepositoryInterface defines operations for face data access
type FaceRepositoryInterface interface {
	Insert(ctx context.Context, rec *domain.FaceRecord) error
	// DeleteOne returns nil when no row matched.
	DeleteOne(ctx context.Context, faceID string) (*DeletedFace, error)
	DeleteByOwner(ctx context.Context, ownerID string) ([]DeletedFace, error)
	// List returns every face when ownerID is empty, newest first.
	List(ctx context.Context, ownerID string) ([]domain.FaceSummary, error)
	ScanAll(ctx context.Context, dim int) (*domain.Gallery, error)
	Ping(ctx context.Context) error
}

// RecognitionAuditRepositoryInterface defines operations for recognition audit logging
type RecognitionAuditRepositoryInterface interface {
	Create(ctx context.Context, audit *domain.RecognitionAudit) error
}
