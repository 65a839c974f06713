package media

import (
	"context"
	"errors"
	"image"
	"io"
	"path"
)

const jpegQuality = 90

var ErrImageNotFound = errors.New("image not found")

// Store persists face images. References returned by Write are what gets
// recorded on the face row and are later passed back to Delete and Open.
type Store interface {
	Write(ctx context.Context, key string, img image.Image) (ref string, err error)
	// Delete removes the image. Deleting a missing image is not an error.
	Delete(ctx context.Context, ref string) error
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Pruner is implemented by stores that keep a per-owner container which
// should go away once it is empty.
type Pruner interface {
	PruneOwner(ctx context.Context, ownerID string) error
}

// ImageKey is the deterministic storage key of a face image.
func ImageKey(ownerID, faceID string) string {
	return path.Join(ownerID, faceID+".jpg")
}
