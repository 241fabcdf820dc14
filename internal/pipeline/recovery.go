package pipeline

import (
	"fmt"
	"strings"
)

// recoveryInstruction is the user turn sent to the fallback model after a failed attempt.
func recoveryInstruction(failure *Failure, lastQuery *Failure) string {
	var b strings.Builder
	switch failure.Kind {
	case FailureQueryExecution:
		writeQueryFailure(&b, failure)
	default:
		fmt.Fprintf(&b, "The previous attempt to generate a response failed unexpectedly: '%s'. ", failureMessage(failure))
		if lastQuery != nil {
			b.WriteString("Before that, ")
			writeQueryFailure(&b, lastQuery)
		}
	}
	b.WriteString("Analyze the user's request, the conversation history, and the error to generate a new, corrected, and valid response. ")
	b.WriteString("Double-check every table and column name against the schema, verify the JOIN conditions, and make sure compared and aggregated values have compatible data types. ")
	b.WriteString("Return a complete response in the same format as before.")
	return b.String()
}

func writeQueryFailure(b *strings.Builder, failure *Failure) {
	fmt.Fprintf(b, "The previous attempt to generate an SQL query failed. Please correct it. The failed SQL query was: ```sql\n%s\n``` The database error was: '%s'. ", failure.SQL, failure.Message)
}

func failureMessage(failure *Failure) string {
	if failure.Err != nil {
		return failure.Err.Error()
	}
	if failure.Message != "" {
		return failure.Message
	}
	return string(failure.Kind)
}
