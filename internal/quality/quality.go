// Package quality scores how usable a detected face is for enrollment.
//
// The score is the fraction of the image covered by the face bounding box.
// Blur, pose and illumination are not measured; a larger face in frame is the
// only signal.
package quality

import "github.com/saturnino-fabrica-de-software/facelocker/internal/domain"

// Score returns clamp(area(bbox) / (width*height), 0, 1). A non-positive image
// area yields 0.
func Score(bbox domain.BoundingBox, width, height int) float64 {
	imageArea := float64(width) * float64(height)
	if imageArea <= 0 {
		return 0
	}
	return clamp(bbox.Area()/imageArea, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
