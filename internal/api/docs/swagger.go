package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollFaceResponse represents the response for a successful enrollment
type EnrollFaceResponse struct {
	OK        bool    `json:"ok" example:"true"`
	FaceID    string  `json:"face_id" example:"F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b"`
	UserID    string  `json:"user_id" example:"U_0001"`
	Quality   float64 `json:"quality" example:"0.21"`
	ImagePath string  `json:"image_path" example:"U_0001/F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b.jpg"`
	ImageURL  string  `json:"image_url" example:"/static/faces/U_0001/F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b.jpg"`
	CreatedAt string  `json:"created_at" example:"2026-01-01T00:00:00Z"`
}

// BatchItem represents the outcome of one image in a batch enrollment
type BatchItem struct {
	Index    int     `json:"index" example:"0"`
	Status   string  `json:"status" example:"ok"`
	FaceID   string  `json:"face_id,omitempty" example:"F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b"`
	Quality  float64 `json:"quality,omitempty" example:"0.18"`
	ImageURL string  `json:"image_url,omitempty" example:"/static/faces/U_0001/F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b.jpg"`
	Error    string  `json:"error,omitempty" example:"no_face_detected"`
}

// BatchEnrollResponse represents the response for a batch enrollment
type BatchEnrollResponse struct {
	OK      bool        `json:"ok" example:"true"`
	UserID  string      `json:"user_id" example:"U_0001"`
	Added   int         `json:"added" example:"2"`
	Total   int         `json:"total" example:"3"`
	Results []BatchItem `json:"results"`
}

// FaceListItem represents an enrolled face without its embedding
type FaceListItem struct {
	FaceID    string   `json:"face_id" example:"F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b"`
	UserID    string   `json:"user_id" example:"U_0001"`
	ImagePath string   `json:"image_path" example:"U_0001/F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b.jpg"`
	ImageURL  string   `json:"image_url" example:"/static/faces/U_0001/F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b.jpg"`
	Quality   *float64 `json:"quality" example:"0.21"`
	CreatedAt string   `json:"created_at" example:"2026-01-01T00:00:00Z"`
}

// DeleteFaceResponse represents the response for a single delete
type DeleteFaceResponse struct {
	OK      bool   `json:"ok" example:"true"`
	Deleted string `json:"deleted" example:"F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b"`
}

// DeleteUserFacesResponse represents the response for deleting all faces of a user
type DeleteUserFacesResponse struct {
	OK      bool     `json:"ok" example:"true"`
	UserID  string   `json:"user_id" example:"U_0001"`
	Deleted int      `json:"deleted" example:"3"`
	FaceIDs []string `json:"face_ids"`
}

// Match represents one ranked gallery entry
type Match struct {
	FaceID     string  `json:"face_id" example:"F_3f2a9c1e0b7d4e6f8a1b2c3d4e5f6a7b"`
	UserID     string  `json:"user_id" example:"U_0001"`
	Similarity float64 `json:"similarity" example:"0.8731"`
}

// RecognizedFace represents the ranking for one detected face
type RecognizedFace struct {
	BBox []float64 `json:"bbox"`
	Top  []Match   `json:"top"`
	Best *Match    `json:"best"`
}

// RecognizeResponse represents the response for recognition
type RecognizeResponse struct {
	RequestID string           `json:"request_id" example:"5b0c1a52-5d5e-4f0e-9d51-0e4c3a2b1f00"`
	Faces     []RecognizedFace `json:"faces"`
	Error     string           `json:"error,omitempty" example:"gallery_empty"`
	LatencyMs int64            `json:"latency_ms" example:"84"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_INPUT"`
	Message string `json:"message" example:"Missing or invalid required field"`
}

var (
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized")
	errInternal     = response.New(ErrorResponse{Code: "STORAGE_FAILURE", Message: "Storage operation failed"}, "500", "Internal Server Error")
	errExtractor    = response.New(ErrorResponse{Code: "EXTRACTOR_FAILURE", Message: "Face extractor failed to process the image"}, "502", "Bad Gateway")
	apiKeySecurity  = []map[string][]string{{"ApiKeyAuth": {}}}
)

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facelocker Face Matching API",
		Version:     "v1.0.0",
		Description: "Face enrollment and 1:N recognition for locker access",
		Host:        "localhost:3000",
		Path:        "/api",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /api/faces
		endpoint.New(
			endpoint.POST,
			"/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll a face"),
			endpoint.WithDescription("Multipart form with user_id and image. The largest detected face is stored."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollFaceResponse{}, "201", "Face enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "Missing or invalid required field"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				errInternal,
				errExtractor,
			}),
			endpoint.WithSecurity(apiKeySecurity),
		),

		// POST /api/faces/batch
		endpoint.New(
			endpoint.POST,
			"/faces/batch",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll several photos of one user"),
			endpoint.WithDescription("Multipart form with user_id and repeated images fields. Each image is reported independently."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(BatchEnrollResponse{}, "200", "Batch processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_INPUT", Message: "Missing or invalid required field"}, "400", "Bad Request"),
				errUnauthorized,
			}),
			endpoint.WithSecurity(apiKeySecurity),
		),

		// GET /api/faces
		endpoint.New(
			endpoint.GET,
			"/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List enrolled faces"),
			endpoint.WithDescription("Newest first. Filters by user when user_id is given."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("user_id", parameter.Query, parameter.WithDescription("Only faces of this user")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]FaceListItem{}, "200", "Faces"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(apiKeySecurity),
		),

		// DELETE /api/faces/{face_id}
		endpoint.New(
			endpoint.DELETE,
			"/faces/{face_id}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete one face"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("face_id", parameter.Path, parameter.WithDescription("Face identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteFaceResponse{}, "200", "Face deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "FACE_NOT_FOUND", Message: "Face not found"}, "404", "Not Found"),
				errInternal,
			}),
			endpoint.WithSecurity(apiKeySecurity),
		),

		// DELETE /api/faces/by-user/{user_id}
		endpoint.New(
			endpoint.DELETE,
			"/faces/by-user/{user_id}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete every face of a user"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("user_id", parameter.Path, parameter.WithDescription("User identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteUserFacesResponse{}, "200", "Faces deleted"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(apiKeySecurity),
		),

		// POST /api/recognize
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize faces in a photo"),
			endpoint.WithDescription("Multipart form with image. Every detected face is ranked against the whole gallery; best is set when the top similarity reaches the threshold."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
				errInternal,
				errExtractor,
			}),
			endpoint.WithSecurity(apiKeySecurity),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
