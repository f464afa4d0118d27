package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (r *Router) extractPDF(ctx context.Context, info FileInfo, data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), info.Size)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var out strings.Builder
	extracted := false
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if extracted {
			out.WriteString("\n")
		}
		out.WriteString(fmt.Sprintf("--- Page %d ---\n", i))
		out.WriteString(text)
		extracted = true
	}

	if !extracted {
		return Result{}, ErrEmptyExtraction
	}

	return Result{Text: strings.TrimSpace(out.String()), File: info}, nil
}
