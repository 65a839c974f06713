package domain

import (
	"time"
)

// Candidate is one ranked gallery entry for a detected face.
type Candidate struct {
	FaceID     string  `json:"face_id"`
	OwnerID    string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// FaceMatch is the recognition outcome for a single detected face. Best is nil
// when the top similarity is below the acceptance threshold; Candidates are
// returned either way.
type FaceMatch struct {
	BBox       BoundingBox `json:"bbox"`
	Candidates []Candidate `json:"top"`
	Best       *Candidate  `json:"best"`
}

// RecognitionResult is the response of a recognition call. GalleryEmpty
// distinguishes "nobody enrolled" from "nobody matched".
type RecognitionResult struct {
	RequestID    string      `json:"request_id"`
	Faces        []FaceMatch `json:"faces"`
	GalleryEmpty bool        `json:"gallery_empty"`
	GallerySize  int         `json:"gallery_size"`
	Threshold    float64     `json:"threshold"`
	LatencyMs    int64       `json:"latency_ms"`
}

// Accepted returns the non-nil best matches in detection order.
func (r *RecognitionResult) Accepted() []Candidate {
	var out []Candidate
	for _, f := range r.Faces {
		if f.Best != nil {
			out = append(out, *f.Best)
		}
	}
	return out
}

// RecognitionAudit is an audit log row for one recognition call.
type RecognitionAudit struct {
	ID                 string    `json:"id"`
	RequestID          string    `json:"request_id"`
	FacesDetected      int       `json:"faces_detected"`
	AcceptedCount      int       `json:"accepted_count"`
	GallerySize        int       `json:"gallery_size"`
	TopMatchOwnerID    *string   `json:"top_match_user_id,omitempty"`
	TopMatchFaceID     *string   `json:"top_match_face_id,omitempty"`
	TopMatchSimilarity *float64  `json:"top_match_similarity,omitempty"`
	Threshold          float64   `json:"threshold"`
	TopK               int       `json:"top_k"`
	LatencyMs          int64     `json:"latency_ms"`
	ClientIP           string    `json:"client_ip"`
	CreatedAt          time.Time `json:"created_at"`
}

// RecognitionEvent is published for every accepted match.
type RecognitionEvent struct {
	RequestID  string    `json:"request_id"`
	OwnerID    string    `json:"user_id"`
	FaceID     string    `json:"face_id"`
	Similarity float64   `json:"similarity"`
	Threshold  float64   `json:"threshold"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"ts"`
}
