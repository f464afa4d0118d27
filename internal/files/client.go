package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrDeleteFailed = errors.New("delete failed")
)

// Client talks to the bucket-addressed storage backend.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTP       *http.Client
}

func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload validates the file against the bucket's rules, stores it and
// returns its public URL.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, data []byte) (string, error) {
	if err := ValidateFor(bucket, key, contentType, int64(len(data))); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/object/%s/%s", c.BaseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.PublicURL(bucket, key), nil
}

func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	url := fmt.Sprintf("%s/object/%s/%s", c.BaseURL, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeleteFailed, resp.StatusCode)
	}
	return nil
}

func (c *Client) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.BaseURL, bucket, key)
}
