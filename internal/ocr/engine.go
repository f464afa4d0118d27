package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Engine recognizes text in a raster image. Confidence is 0-100.
type Engine interface {
	Recognize(ctx context.Context, name string, data []byte) (string, float64, error)
}

// RemoteEngine calls a tesseract-style OCR HTTP service.
type RemoteEngine struct {
	BaseURL  string
	Language string
	Client   *http.Client
}

func NewRemoteEngine(baseURL, language string) *RemoteEngine {
	if language == "" {
		language = "eng"
	}
	return &RemoteEngine{
		BaseURL:  baseURL,
		Language: language,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type recognizeRequest struct {
	Image    string `json:"image"`
	Language string `json:"language"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

func (e *RemoteEngine) Recognize(ctx context.Context, _ string, data []byte) (string, float64, error) {
	if e.BaseURL == "" {
		return "", 0, errors.New("ocr engine url not configured")
	}

	payload, err := json.Marshal(recognizeRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		Language: e.Language,
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/recognize", bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	var decoded recognizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", 0, fmt.Errorf("decoding ocr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return "", 0, fmt.Errorf("ocr engine status %d: %s", resp.StatusCode, msg)
	}

	return decoded.Text, decoded.Confidence, nil
}
