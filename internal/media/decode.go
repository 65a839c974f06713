package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// Decode turns raw upload bytes into pixels, applying the EXIF orientation so
// bounding boxes refer to the upright image.
func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("decode image: %w", err))
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image has no pixels"))
	}

	return img, nil
}

// EncodeJPEG is the on-disk format for every stored face image.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
