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

// OpenRouter speaks the OpenAI-compatible chat-completions API.
type OpenRouter struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewOpenRouter(apiKey, model string) *OpenRouter {
	if model == "" {
		model = "meta-llama/llama-3.3-70b-instruct:free"
	}
	return &OpenRouter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api",
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (o *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:    o.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: o.Name(), Kind: KindUnknown, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: o.Name(), Kind: KindUnknown, Message: err.Error()}
	}

	var decoded chatCompletionResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return "", &ProviderError{Provider: o.Name(), Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ProviderError{Provider: o.Name(), Kind: KindUnknown, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(decoded.Choices) == 0 {
		return "", &ProviderError{Provider: o.Name(), Kind: KindUnknown, Message: "no choices in response"}
	}
	return decoded.Choices[0].Message.Content, nil
}
