package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/truenorth/chartsql/internal/chat"
)

const ProviderEino = "eino"

type EinoConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	JSONMode    bool
}

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoModel invokes a chat model built with the eino component library.
type EinoModel struct {
	generator generator
	model     string
	jsonMode  bool
}

func NewEinoModel(ctx context.Context, cfg EinoConfig) (*EinoModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = "gpt-5"
	}
	chatModel, err := einoopenai.NewChatModel(ctx, einoChatModelConfig(cfg, modelName))
	if err != nil {
		return nil, fmt.Errorf("create eino chat model: %w", err)
	}
	return newEinoModel(chatModel, modelName, cfg.JSONMode), nil
}

func einoChatModelConfig(cfg EinoConfig, modelName string) *einoopenai.ChatModelConfig {
	temperature := float32(cfg.Temperature)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		baseURL = strings.TrimSuffix(sdkBaseURL(baseURL), "/")
	}
	out := &einoopenai.ChatModelConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		BaseURL:     baseURL,
		Model:       modelName,
		Timeout:     cfg.Timeout,
		Temperature: &temperature,
	}
	if cfg.JSONMode {
		out.ResponseFormat = &einoopenai.ChatCompletionResponseFormat{Type: einoopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

func newEinoModel(g generator, modelName string, jsonMode bool) *EinoModel {
	return &EinoModel{generator: g, model: modelName, jsonMode: jsonMode}
}

func (m *EinoModel) Invoke(ctx context.Context, systemPrompt string, history []chat.Turn) (Reply, error) {
	built := buildMessages(systemPrompt, history)
	messages := make([]*schema.Message, 0, len(built))
	for _, msg := range built {
		role := schema.User
		switch msg.Role {
		case "system":
			role = schema.System
		case "assistant":
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: msg.Content})
	}

	resp, err := m.generator.Generate(ctx, messages)
	if err != nil {
		return Reply{}, &InvocationError{Provider: ProviderEino, Model: m.model, Err: err}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return Reply{}, &InvocationError{Provider: ProviderEino, Model: m.model, Err: fmt.Errorf("model returned empty content")}
	}
	return Reply{
		Content:    strings.TrimSpace(resp.Content),
		Structured: m.jsonMode,
		Provider:   ProviderEino,
		Model:      m.model,
	}, nil
}
