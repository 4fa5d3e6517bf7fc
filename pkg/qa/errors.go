package qa

import "fmt"

// TranslationError reports that the language model failed to produce a
// candidate query for a question.
type TranslationError struct {
	Question string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("failed to translate question %q: %v", e.Question, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// ExecutionFault reports that a candidate query could not be run. It
// carries the attempted query so callers can surface it verbatim.
type ExecutionFault struct {
	Query string
	Err   error
}

func (e *ExecutionFault) Error() string {
	return fmt.Sprintf("query execution fault: %v", e.Err)
}

func (e *ExecutionFault) Unwrap() error { return e.Err }

// CompositionError reports that answer composition failed after a
// successful query execution.
type CompositionError struct {
	Query string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("failed to compose answer: %v", e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }
