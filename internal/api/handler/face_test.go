package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
)

// MockFaceService is a mock implementation of FaceService
type MockFaceService struct {
	mock.Mock
}

func (m *MockFaceService) Enroll(ctx context.Context, ownerID string, raw []byte) (*domain.EnrollResult, error) {
	args := m.Called(ctx, ownerID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrollResult), args.Error(1)
}

func (m *MockFaceService) EnrollBatch(ctx context.Context, ownerID string, images [][]byte) (*domain.BatchResult, error) {
	args := m.Called(ctx, ownerID, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchResult), args.Error(1)
}

func (m *MockFaceService) Recognize(ctx context.Context, raw []byte, clientIP string) (*domain.RecognitionResult, error) {
	args := m.Called(ctx, raw, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionResult), args.Error(1)
}

func (m *MockFaceService) ListFaces(ctx context.Context, ownerID string) ([]domain.FaceSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FaceSummary), args.Error(1)
}

func (m *MockFaceService) DeleteFace(ctx context.Context, faceID string) (int, error) {
	args := m.Called(ctx, faceID)
	return args.Int(0), args.Error(1)
}

func (m *MockFaceService) DeleteFacesByOwner(ctx context.Context, ownerID string) (domain.OwnerDeletion, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(domain.OwnerDeletion), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type part struct {
	field       string
	content     []byte
	contentType string
}

// multipartBody builds a form with the given text fields and file parts.
func multipartBody(t *testing.T, fields map[string]string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="face.jpg"`)
		h.Set("Content-Type", p.contentType)
		w, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = w.Write(p.content)
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func createTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
		BodyLimit:    MaxBodySize,
	})
}

func newFaceApp(svc *MockFaceService) *fiber.App {
	app := createTestApp()
	h := NewFaceHandler(svc, testLogger())
	app.Post("/api/faces", h.Enroll)
	app.Post("/api/faces/batch", h.EnrollBatch)
	app.Get("/api/faces", h.List)
	app.Delete("/api/faces/by-user/:user_id", h.DeleteByOwner)
	app.Delete("/api/faces/:face_id", h.Delete)
	return app
}

func errorCode(t *testing.T, r io.Reader) string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body["error"]["code"]
}

func TestFaceHandler_Enroll(t *testing.T) {
	image := []byte("jpeg-bytes")
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		fields     map[string]string
		parts      []part
		setupMock  func(*MockFaceService)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "successful enrollment",
			fields: map[string]string{"user_id": "U_0001"},
			parts:  []part{{"image", image, "image/jpeg"}},
			setupMock: func(m *MockFaceService) {
				m.On("Enroll", mock.Anything, "U_0001", image).Return(&domain.EnrollResult{
					FaceID:    "F_abc",
					OwnerID:   "U_0001",
					Quality:   0.25,
					ImageRef:  "U_0001/F_abc.jpg",
					ImageURL:  "/static/faces/U_0001/F_abc.jpg",
					CreatedAt: created,
				}, nil)
			},
			wantStatus: 201,
		},
		{
			name:       "missing image",
			fields:     map[string]string{"user_id": "U_0001"},
			setupMock:  func(m *MockFaceService) {},
			wantStatus: 400,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "unsupported content type",
			fields:     map[string]string{"user_id": "U_0001"},
			parts:      []part{{"image", image, "text/plain"}},
			setupMock:  func(m *MockFaceService) {},
			wantStatus: 400,
			wantCode:   "INVALID_IMAGE",
		},
		{
			name:       "empty image",
			fields:     map[string]string{"user_id": "U_0001"},
			parts:      []part{{"image", []byte{}, "image/jpeg"}},
			setupMock:  func(m *MockFaceService) {},
			wantStatus: 400,
			wantCode:   "INVALID_IMAGE",
		},
		{
			name:   "missing user id",
			fields: map[string]string{},
			parts:  []part{{"image", image, "image/jpeg"}},
			setupMock: func(m *MockFaceService) {
				m.On("Enroll", mock.Anything, "", image).Return(nil, domain.ErrInvalidInput)
			},
			wantStatus: 400,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:   "no face detected",
			fields: map[string]string{"user_id": "U_0001"},
			parts:  []part{{"image", image, "application/octet-stream"}},
			setupMock: func(m *MockFaceService) {
				m.On("Enroll", mock.Anything, "U_0001", image).Return(nil, domain.ErrNoFaceDetected)
			},
			wantStatus: 422,
			wantCode:   "NO_FACE_DETECTED",
		},
		{
			name:   "storage failure",
			fields: map[string]string{"user_id": "U_0001"},
			parts:  []part{{"image", image, "image/jpeg"}},
			setupMock: func(m *MockFaceService) {
				m.On("Enroll", mock.Anything, "U_0001", image).
					Return(nil, domain.ErrStorageFailure.WithError(errors.New("disk full")))
			},
			wantStatus: 500,
			wantCode:   "STORAGE_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockFaceService)
			tt.setupMock(svc)
			app := newFaceApp(svc)

			body, contentType := multipartBody(t, tt.fields, tt.parts...)
			req := httptest.NewRequest("POST", "/api/faces", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var got map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, true, got["ok"])
				assert.Equal(t, "F_abc", got["face_id"])
				assert.Equal(t, "U_0001", got["user_id"])
				assert.Equal(t, 0.25, got["quality"])
				assert.Equal(t, "/static/faces/U_0001/F_abc.jpg", got["image_url"])
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestFaceHandler_EnrollBatch(t *testing.T) {
	t.Run("itemized result", func(t *testing.T) {
		svc := new(MockFaceService)
		a, b := []byte("first"), []byte("second")
		svc.On("EnrollBatch", mock.Anything, "U_0002", [][]byte{a, nil, b}).Return(&domain.BatchResult{
			OwnerID: "U_0002",
			Added:   2,
			Total:   3,
			Results: []domain.ItemResult{
				{Index: 0, Status: domain.ItemStatusOK, FaceID: "F_1"},
				{Index: 1, Status: domain.ItemStatusError, Error: "invalid_image"},
				{Index: 2, Status: domain.ItemStatusOK, FaceID: "F_2"},
			},
		}, nil)
		app := newFaceApp(svc)

		body, contentType := multipartBody(t, map[string]string{"user_id": "U_0002"},
			part{"images", a, "image/jpeg"},
			part{"images", []byte{}, "image/jpeg"},
			part{"images", b, "image/png"},
		)
		req := httptest.NewRequest("POST", "/api/faces/batch", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got struct {
			OK      bool                `json:"ok"`
			OwnerID string              `json:"user_id"`
			Added   int                 `json:"added"`
			Total   int                 `json:"total"`
			Results []domain.ItemResult `json:"results"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.True(t, got.OK)
		assert.Equal(t, 2, got.Added)
		assert.Equal(t, 3, got.Total)
		require.Len(t, got.Results, 3)
		assert.Equal(t, "invalid_image", got.Results[1].Error)

		svc.AssertExpectations(t)
	})

	t.Run("no files", func(t *testing.T) {
		svc := new(MockFaceService)
		app := newFaceApp(svc)

		body, contentType := multipartBody(t, map[string]string{"user_id": "U_0002"})
		req := httptest.NewRequest("POST", "/api/faces/batch", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, resp.Body))
		svc.AssertNotCalled(t, "EnrollBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		app := newFaceApp(new(MockFaceService))

		req := httptest.NewRequest("POST", "/api/faces/batch", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestFaceHandler_List(t *testing.T) {
	svc := new(MockFaceService)
	q := 0.5
	svc.On("ListFaces", mock.Anything, "U_1").Return([]domain.FaceSummary{
		{FaceID: "F_2", OwnerID: "U_1", ImageURL: "/static/faces/U_1/F_2.jpg", Quality: &q},
		{FaceID: "F_1", OwnerID: "U_1", ImageURL: "/static/faces/U_1/F_1.jpg"},
	}, nil)
	svc.On("ListFaces", mock.Anything, "").Return([]domain.FaceSummary{}, nil)
	app := newFaceApp(svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/faces?user_id=U_1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "F_2", got[0]["face_id"])
	assert.Equal(t, 0.5, got[0]["quality"])
	assert.Nil(t, got[1]["quality"])

	resp, err = app.Test(httptest.NewRequest("GET", "/api/faces", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[]`, string(body))
}

func TestFaceHandler_Delete(t *testing.T) {
	svc := new(MockFaceService)
	svc.On("DeleteFace", mock.Anything, "F_1").Return(1, nil).Once()
	svc.On("DeleteFace", mock.Anything, "F_1").Return(0, nil).Once()
	app := newFaceApp(svc)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/faces/F_1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":true,"deleted":"F_1"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/faces/F_1", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "FACE_NOT_FOUND", errorCode(t, resp.Body))

	svc.AssertExpectations(t)
}

func TestFaceHandler_DeleteByOwner(t *testing.T) {
	svc := new(MockFaceService)
	svc.On("DeleteFacesByOwner", mock.Anything, "U_0003").Return(domain.OwnerDeletion{
		OwnerID: "U_0003",
		Deleted: 3,
		FaceIDs: []string{"F_1", "F_2", "F_3"},
	}, nil)
	app := newFaceApp(svc)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/faces/by-user/U_0003", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"ok":true,"user_id":"U_0003","deleted":3,"face_ids":["F_1","F_2","F_3"]}`, string(body))
}
