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

	"github.com/truenorth/chartsql/internal/chat"
)

const ProviderHTTP = "http"

type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	JSONMode    bool
}

// HTTPModel talks to any OpenAI-compatible /v1/chat/completions endpoint.
type HTTPModel struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	jsonMode    bool
	client      *http.Client
}

func NewHTTPModel(cfg HTTPConfig) (*HTTPModel, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPModel{
		baseURL:     strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"), "/v1"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (m *HTTPModel) Invoke(ctx context.Context, systemPrompt string, history []chat.Turn) (Reply, error) {
	content, err := m.complete(ctx, systemPrompt, history)
	if err != nil {
		return Reply{}, &InvocationError{Provider: ProviderHTTP, Model: m.model, Err: err}
	}
	return Reply{Content: content, Structured: m.jsonMode, Provider: ProviderHTTP, Model: m.model}, nil
}

func (m *HTTPModel) complete(ctx context.Context, systemPrompt string, history []chat.Turn) (string, error) {
	payload := map[string]any{
		"model":       m.model,
		"messages":    buildMessages(systemPrompt, history),
		"temperature": m.temperature,
	}
	if m.jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	return content, nil
}
