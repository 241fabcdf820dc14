package pipeline

import "fmt"

// FailureKind classifies why an attempt did not produce a valid response.
type FailureKind string

const (
	FailureDeclined         FailureKind = "declined"
	FailureQueryExecution   FailureKind = "query_execution"
	FailureModelInvocation  FailureKind = "model_invocation"
	FailureRetriesExhausted FailureKind = "retries_exhausted"
	FailureUnexpected       FailureKind = "unexpected"
)

// Failure is the result of an attempt that did not succeed. SQL and Message
// are set for query execution failures; Message alone for declines.
type Failure struct {
	Kind    FailureKind
	SQL     string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// retryable reports whether a fallback attempt may correct the failure.
func (f *Failure) retryable() bool {
	return f.Kind == FailureQueryExecution || f.Kind == FailureModelInvocation
}
