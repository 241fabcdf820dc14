package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

var (
	//go:embed prompts/default.md
	defaultSystemPrompt string
	//go:embed prompts/reply_json.md
	replyJSONInstruction string
	//go:embed prompts/reply_fenced.md
	replyFencedInstruction string
)

// LoadSystemPrompt reads the prompt at path, or returns the built-in prompt when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return prompt, nil
}

func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

// SystemPromptFor appends the reply format a model path can honour. Paths
// without JSON mode are asked for a fenced json block, which the answer
// parser reads when the reply is not a bare object.
func SystemPromptFor(base string, jsonMode bool) string {
	instruction := replyFencedInstruction
	if jsonMode {
		instruction = replyJSONInstruction
	}
	return strings.TrimSpace(base) + "\n\n" + strings.TrimSpace(instruction)
}
