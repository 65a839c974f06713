package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for the DeepFace client
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Model    string
	Detector string
	Dim      int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:5005",
		Timeout:  30 * time.Second,
		Model:    "Facenet512",
		Detector: "retinaface",
		Dim:      512,
	}
}

// Client is the HTTP client for the DeepFace sidecar
type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Represent calls POST /represent to detect faces and generate embeddings.
// Each call reaches the sidecar exactly once; transport and 5xx failures are
// wrapped with ErrDeepFaceUnavailable and returned to the caller.
func (c *Client) Represent(ctx context.Context, imageBase64 string) (*RepresentResponse, error) {
	req := RepresentRequest{
		Img:              imageBase64,
		Model:            c.config.Model,
		Detector:         c.config.Detector,
		EnforceDetection: true,
		Align:            true,
	}

	var resp RepresentResponse
	if err := c.doRequest(ctx, http.MethodPost, "/represent", req, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isClientError(err) || errors.Is(err, ErrInvalidResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeepFaceUnavailable, err)
	}

	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
