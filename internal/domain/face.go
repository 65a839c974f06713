package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	faceIDPrefix   = "F_"
	maxOwnerIDSize = 128
)

var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FaceRecord is one enrolled face. Records are never updated in place;
// re-enrollment creates a new record.
type FaceRecord struct {
	FaceID    string    `json:"face_id"`
	OwnerID   string    `json:"user_id"`
	Embedding []float32 `json:"-"`
	ImageRef  string    `json:"image_path"`
	// Quality is nil for legacy records enrolled before scoring existed.
	Quality   *float64  `json:"quality"`
	CreatedAt time.Time `json:"created_at"`
}

// FaceSummary is the listing view of a FaceRecord, without the embedding.
type FaceSummary struct {
	FaceID    string    `json:"face_id"`
	OwnerID   string    `json:"user_id"`
	ImageRef  string    `json:"image_path"`
	ImageURL  string    `json:"image_url"`
	Quality   *float64  `json:"quality"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerDeletion reports the outcome of deleting every face of one owner.
type OwnerDeletion struct {
	OwnerID string   `json:"user_id"`
	Deleted int      `json:"deleted"`
	FaceIDs []string `json:"face_ids"`
}

// BoundingBox is a detection rectangle in pixel coordinates, [X0,Y0] top-left
// and [X1,Y1] bottom-right.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Area returns (x1-x0)*(y1-y0). Inverted boxes yield a negative area.
func (b BoundingBox) Area() float64 {
	return (b.X1 - b.X0) * (b.Y1 - b.Y0)
}

// Slice returns the box as [x0, y0, x1, y1].
func (b BoundingBox) Slice() []float64 {
	return []float64{b.X0, b.Y0, b.X1, b.Y1}
}

// Detection is a transient extractor output consumed within one call.
type Detection struct {
	BBox      BoundingBox
	Embedding []float32
	// Confidence is the detector score when the extractor reports one.
	Confidence *float64
}

// NewFaceID generates an opaque face identifier: "F_" followed by 32 hex chars.
func NewFaceID() string {
	return faceIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ImageURL is the public URL under which the face image is served.
func ImageURL(ownerID, faceID string) string {
	return "/static/faces/" + ownerID + "/" + faceID + ".jpg"
}

// NormalizeOwnerID trims the owner id and checks it can safely key an image
// path segment.
func NormalizeOwnerID(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", ErrInvalidInput.WithError(errors.New("user_id is required"))
	}
	if len(ownerID) > maxOwnerIDSize {
		return "", ErrInvalidInput.WithError(errors.New("user_id is too long"))
	}
	if ownerID == "." || ownerID == ".." || !ownerIDPattern.MatchString(ownerID) {
		return "", ErrInvalidInput.WithError(errors.New("user_id contains invalid characters"))
	}
	return ownerID, nil
}
