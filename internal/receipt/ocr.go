package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TextRecognizer turns a receipt image into raw text.
type TextRecognizer interface {
	Recognize(ctx context.Context, contentType string, image []byte) (string, error)
}

// HTTPRecognizer posts the image bytes to an OCR endpoint that answers
// {"text": "..."}.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRecognizer(endpoint string, timeout time.Duration) *HTTPRecognizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, contentType string, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return body.Text, nil
}
