// Package response turns a parsed model answer and its executed rows into the
// payload returned to chat clients.
package response

import (
	"github.com/truenorth/chartsql/internal/answer"
	"github.com/truenorth/chartsql/internal/query"
)

const DefaultDeclinedMessage = "Unable to process your request. Please ask about data available in the connected database."

// Final is the outward result of one processed message. A valid Final never
// carries an error message; an invalid one never carries data or a summary.
type Final struct {
	VisualizationType string              `json:"visualizationType,omitempty"`
	ChartConfig       *answer.ChartConfig `json:"chartConfig,omitempty"`
	Explanation       string              `json:"explanation,omitempty"`
	Data              []query.Row         `json:"data"`
	Summary           *Summary            `json:"summary"`
	IsValid           bool                `json:"isValid"`
	ErrorMessage      string              `json:"errorMessage,omitempty"`
	ConversationID    string              `json:"conversationId,omitempty"`

	// Query and Columns describe the executed statement for archiving; they are not serialized.
	Query   string   `json:"-"`
	Columns []string `json:"-"`
}

// Invalid builds a failed Final. A blank message falls back to DefaultDeclinedMessage.
func Invalid(message string) Final {
	if message == "" {
		message = DefaultDeclinedMessage
	}
	return Final{IsValid: false, ErrorMessage: message}
}

// Summary describes the result rows. The aggregates are nil unless a value
// field was named and held at least one number.
type Summary struct {
	TotalRecords int      `json:"totalRecords"`
	Total        *float64 `json:"total,omitempty"`
	Average      *float64 `json:"average,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
}

// Columns returns the result's column names, or the names derived from the
// answer's SQL text when execution reported none.
func Columns(ans answer.ModelAnswer, result query.Result) []string {
	if len(result.Columns) > 0 {
		return append([]string(nil), result.Columns...)
	}
	return query.ExtractColumns(ans.Query)
}
