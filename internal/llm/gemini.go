package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gemini calls Google's generative-language REST API directly.
type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://generativelanguage.googleapis.com",
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: g.Name(), Kind: KindUnknown, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: g.Name(), Kind: KindUnknown, Message: err.Error()}
	}

	var decoded geminiResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		kind := kindForStatus(resp.StatusCode)
		if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
			// Gemini reports exhausted free-tier quota as 429 RESOURCE_EXHAUSTED.
			if decoded.Error.Status == "RESOURCE_EXHAUSTED" {
				kind = KindQuota
			}
		}
		return "", &ProviderError{Provider: g.Name(), Kind: kind, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ProviderError{Provider: g.Name(), Kind: KindUnknown, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: g.Name(), Kind: KindUnknown, Message: "no candidates in response"}
	}

	var out strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}
