package answer

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/truenorth/chartsql/internal/llm"
)

// Kind records which strategy produced a parse result.
type Kind string

const (
	KindStructured Kind = "structured"
	KindFencedJSON Kind = "fenced_json"
	KindFencedSQL  Kind = "fenced_sql"
	KindUnparsed   Kind = "unparsed"
)

type Result struct {
	Kind   Kind
	Answer ModelAnswer
}

var (
	jsonFencePattern = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)```")
	sqlFencePattern  = regexp.MustCompile("(?is)```sql[ \\t]*\\r?\\n?(.*?)```")
)

// Parse resolves a model reply into a ModelAnswer. It never fails; unreadable
// replies come back as KindUnparsed with IsValid false.
func Parse(reply llm.Reply, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	content := strings.TrimSpace(reply.Content)

	if reply.Structured {
		if parsed, ok := decode(content); ok {
			return Result{Kind: KindStructured, Answer: parsed}
		}
		logger.Warn("structured model reply did not decode", "provider", reply.Provider, "model", reply.Model)
	}

	if match := jsonFencePattern.FindStringSubmatch(content); match != nil {
		if parsed, ok := decode(match[1]); ok {
			return Result{Kind: KindFencedJSON, Answer: parsed}
		}
		logger.Warn("fenced json block did not decode", "provider", reply.Provider, "model", reply.Model)
	}

	if match := sqlFencePattern.FindStringSubmatch(content); match != nil {
		sqlText := strings.TrimSpace(match[1])
		if sqlText != "" {
			return Result{Kind: KindFencedSQL, Answer: ModelAnswer{
				Query:             sqlText,
				VisualizationType: "table",
				IsValid:           true,
			}}
		}
	}

	return Result{Kind: KindUnparsed, Answer: ModelAnswer{IsValid: false}}
}

func decode(raw string) (ModelAnswer, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ModelAnswer{}, false
	}
	var parsed ModelAnswer
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ModelAnswer{}, false
	}
	parsed.Query = strings.TrimSpace(parsed.Query)
	return parsed, true
}
