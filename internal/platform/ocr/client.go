// Package ocr is the HTTP client for the external OCR sidecar.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"bursary/internal/platform/config"
	"bursary/internal/verification/ports"
)

// Client calls the OCR sidecar's /v1/recognize endpoint with an image and
// returns per-token text with confidences. It implements ports.OCRClient.
type Client struct {
	endpoint string
	http     *http.Client
}

// New builds a client from config. The request timeout comes from the caller's
// context; cfg.Timeout is applied as the transport ceiling.
func New(cfg config.OCRConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ocr endpoint is required")
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type recognizeResponse struct {
	Tokens []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"tokens"`
}

func (c *Client) Extract(ctx context.Context, image []byte, lang string) ([]ports.OCRToken, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "document.png")
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	if err := writer.WriteField("language", lang); err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/recognize", &body)
	if err != nil {
		return nil, fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ocr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ocr returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	tokens := make([]ports.OCRToken, 0, len(parsed.Tokens))
	for _, t := range parsed.Tokens {
		tokens = append(tokens, ports.OCRToken{Text: t.Text, Confidence: t.Confidence})
	}
	return tokens, nil
}
