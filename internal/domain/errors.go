package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so a sentinel still matches
// after WithError has attached a cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	// Engine errors

	ErrInvalidInput = &AppError{
		Code:       "INVALID_INPUT",
		Message:    "Missing or invalid required field",
		StatusCode: 400,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 400,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrDuplicateKey = &AppError{
		Code:       "DUPLICATE_KEY",
		Message:    "Face id already exists",
		StatusCode: 409,
	}

	ErrStorageFailure = &AppError{
		Code:       "STORAGE_FAILURE",
		Message:    "Storage operation failed",
		StatusCode: 500,
	}

	ErrExtractorFailure = &AppError{
		Code:       "EXTRACTOR_FAILURE",
		Message:    "Face extractor failed to process the image",
		StatusCode: 502,
	}

	ErrInvalidEmbedding = &AppError{
		Code:       "INVALID_EMBEDDING",
		Message:    "Extractor returned an embedding of unexpected size",
		StatusCode: 502,
	}

	ErrFaceNotFound = &AppError{
		Code:       "FACE_NOT_FOUND",
		Message:    "Face not found",
		StatusCode: 404,
	}
)
