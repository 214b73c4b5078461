package ports

import "context"

// InterpretationRequest is the input of the interpretation collaborator.
type InterpretationRequest struct {
	Hexagram  int    `json:"hexagram"`
	Intention string `json:"intention"`

	// Optional context the collaborator may use.
	Resulting int    `json:"resulting,omitempty"`
	Changing  []int  `json:"changing,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// Interpreter is the interpretation collaborator. Implementations may be
// called more than once over a process lifetime; the session guarantees a
// single call per session.
type Interpreter interface {
	Interpret(ctx context.Context, req InterpretationRequest) (string, error)
}

// InterpreterFunc adapts a function to the Interpreter interface.
type InterpreterFunc func(ctx context.Context, req InterpretationRequest) (string, error)

// Interpret calls f.
func (f InterpreterFunc) Interpret(ctx context.Context, req InterpretationRequest) (string, error) {
	return f(ctx, req)
}
