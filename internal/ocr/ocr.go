package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyExtraction = errors.New("no text could be extracted")
	ErrInvalidDocument = errors.New("invalid document")
)

const (
	maxImageBytes          = 10 << 20
	lowConfidenceThreshold = 30.0
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
	"image/bmp":  true,
}

type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Size        int64  `json:"size"`
}

type Result struct {
	Text string `json:"text"`
	// Confidence is nil on the PDF path; the image path always sets it,
	// including a genuine 0.
	Confidence *float64 `json:"confidence,omitempty"`
	File       FileInfo `json:"file_info"`
}

// Router dispatches an uploaded file to the image or PDF extraction path
// based on its declared content type.
type Router struct {
	Engine Engine
}

func NewRouter(engine Engine) *Router {
	return &Router{Engine: engine}
}

func (r *Router) ExtractText(ctx context.Context, name, contentType string, data []byte) (Result, error) {
	info := FileInfo{Name: name, ContentType: contentType, Size: int64(len(data))}

	switch {
	case imageTypes[contentType]:
		return r.extractImage(ctx, info, data)
	case contentType == "application/pdf":
		return r.extractPDF(ctx, info, data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

func (r *Router) extractImage(ctx context.Context, info FileInfo, data []byte) (Result, error) {
	if info.Size > maxImageBytes {
		return Result{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size, maxImageBytes)
	}

	text, confidence, err := r.Engine.Recognize(ctx, info.Name, data)
	if err != nil {
		return Result{}, fmt.Errorf("recognizing %s: %w", info.Name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyExtraction
	}
	if confidence < lowConfidenceThreshold {
		log.Printf("ocr: low confidence %.1f%% for %s", confidence, info.Name)
	}

	return Result{Text: text, Confidence: &confidence, File: info}, nil
}
