package facedetect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPDetector posts frames to a face detection sidecar.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDetector(baseURL string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Faces []Detection `json:"faces"`
}

func (d *HTTPDetector) Detect(ctx context.Context, frame []byte) ([]Detection, error) {
	payload, err := json.Marshal(detectRequest{
		Image: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var body detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}

	return body.Faces, nil
}
