package deepface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Represent(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse any
		serverStatus   int
		wantErr        bool
		wantErrContain string
		validateResp   func(*testing.T, *RepresentResponse)
	}{
		{
			name: "successful response with single face",
			serverResponse: RepresentResponse{
				Results: []RepresentResult{
					{
						Embedding:  make([]float64, 512),
						FacialArea: FacialArea{X: 10, Y: 20, W: 100, H: 100},
					},
				},
			},
			serverStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				require.Len(t, resp.Results, 1)
				assert.Len(t, resp.Results[0].Embedding, 512)
				assert.Equal(t, FacialArea{X: 10, Y: 20, W: 100, H: 100}, resp.Results[0].FacialArea)
				assert.Nil(t, resp.Results[0].FaceConfidence)
			},
		},
		{
			name:           "empty response",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			validateResp: func(t *testing.T, resp *RepresentResponse) {
				require.NotNil(t, resp)
				assert.Empty(t, resp.Results)
			},
		},
		{
			name:           "bad request 400",
			serverResponse: map[string]string{"error": "invalid image format"},
			serverStatus:   http.StatusBadRequest,
			wantErr:        true,
			wantErrContain: "status 400",
		},
		{
			name:           "service unavailable 503",
			serverResponse: map[string]string{"error": "service temporarily unavailable"},
			serverStatus:   http.StatusServiceUnavailable,
			wantErr:        true,
			wantErrContain: "deepface service unavailable",
		},
		{
			name:           "invalid json response",
			serverResponse: "not a valid json",
			serverStatus:   http.StatusOK,
			wantErr:        true,
			wantErrContain: "invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/represent", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req RepresentRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

				assert.NotEmpty(t, req.Img)
				assert.Equal(t, "Facenet512", req.Model)
				assert.Equal(t, "retinaface", req.Detector)
				assert.True(t, req.EnforceDetection)

				w.WriteHeader(tt.serverStatus)
				if str, ok := tt.serverResponse.(string); ok {
					_, _ = w.Write([]byte(str))
				} else {
					_ = json.NewEncoder(w).Encode(tt.serverResponse)
				}
			}))
			defer server.Close()

			config := DefaultConfig()
			config.BaseURL = server.URL

			resp, err := NewClient(config).Represent(context.Background(), "dGVzdA==")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrContain != "" {
					assert.Contains(t, err.Error(), tt.wantErrContain)
				}
				return
			}

			require.NoError(t, err)
			if tt.validateResp != nil {
				tt.validateResp(t, resp)
			}
		})
	}
}

func TestClient_ServerErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL

	started := time.Now()
	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Less(t, time.Since(started), time.Second)
}

func TestClient_ClientErrorIsReturnedAsIs(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL

	_, err := NewClient(config).Represent(context.Background(), "dGVzdA==")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeepFaceUnavailable)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewClient(config).Represent(ctx, "dGVzdA==")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
