package domain

import "time"

const (
	ItemStatusOK    = "ok"
	ItemStatusError = "error"

	// ItemErrorCanceled marks batch items left unprocessed, or interrupted,
	// because the request was canceled.
	ItemErrorCanceled = "canceled"
)

// EnrollResult is returned by a successful single enrollment.
type EnrollResult struct {
	FaceID    string    `json:"face_id"`
	OwnerID   string    `json:"user_id"`
	Quality   float64   `json:"quality"`
	ImageRef  string    `json:"image_path"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemResult is the per-image outcome of a batch enrollment. Index matches the
// position of the image in the request. Quality is set on every ok item,
// including a zero score.
type ItemResult struct {
	Index    int      `json:"index"`
	Status   string   `json:"status"`
	FaceID   string   `json:"face_id,omitempty"`
	Quality  *float64 `json:"quality,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// BatchResult aggregates a batch enrollment.
type BatchResult struct {
	OwnerID string       `json:"user_id"`
	Added   int          `json:"added"`
	Total   int          `json:"total"`
	Results []ItemResult `json:"results"`
}
