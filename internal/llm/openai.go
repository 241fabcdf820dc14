package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/truenorth/chartsql/internal/chat"
)

const ProviderOpenAI = "openai"

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	JSONMode    bool
}

// OpenAIModel invokes chat completions through the official SDK.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float64
	jsonMode    bool
}

func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(sdkBaseURL(baseURL)))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAIModel{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
	}, nil
}

func (m *OpenAIModel) Invoke(ctx context.Context, systemPrompt string, history []chat.Turn) (Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, msg := range buildMessages(systemPrompt, history) {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.F(m.model),
		Messages:    openai.F(messages),
		Temperature: openai.F(m.temperature),
	}
	if m.jsonMode {
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](openai.ResponseFormatJSONObjectParam{
			Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
		})
	}
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, &InvocationError{Provider: ProviderOpenAI, Model: m.model, Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Reply{}, &InvocationError{Provider: ProviderOpenAI, Model: m.model, Err: fmt.Errorf("empty chat completion choices")}
	}
	return Reply{
		Content:    strings.TrimSpace(resp.Choices[0].Message.Content),
		Structured: m.jsonMode,
		Provider:   ProviderOpenAI,
		Model:      m.model,
	}, nil
}

// sdkBaseURL appends the /v1 segment the SDK expects when the configured URL omits it.
func sdkBaseURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed + "/"
	}
	return trimmed + "/v1/"
}
