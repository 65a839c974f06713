package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
)

// StatusError is a non-2xx answer from the sidecar.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}

// isNoFace reports whether the sidecar rejected the image because it found no
// face while detection was enforced.
func isNoFace(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 {
		return false
	}
	body := strings.ToLower(se.Body)
	return strings.Contains(body, "could not be detected") || strings.Contains(body, "no face")
}
