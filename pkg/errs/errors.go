package errs

import (
	"errors"
	"fmt"
)

// Code identifies an error kind
type Code string

// Error codes
const (
	CodeInvalidImplementation Code = "INVALID_IMPLEMENTATION"
	CodeInvalidSecrets        Code = "INVALID_SECRETS"
	CodeExecution             Code = "EXECUTION_ERROR"
	CodeInvalidProvider       Code = "INVALID_PROVIDER_ERROR"
	CodeContentParsing        Code = "CONTENT_PARSER_ERROR"
	CodeProvider              Code = "PROVIDER_ERROR"
	CodeLLMModel              Code = "LLM_MODEL_ERROR"
)

var (
	// ErrInvalidImplementation is matched by malformed tool or agent configuration,
	// and by a required tool input property missing at call time
	ErrInvalidImplementation = errors.New("invalid implementation")

	// ErrInvalidSecrets is matched when a declared secret is absent at call time
	ErrInvalidSecrets = errors.New("invalid secrets")

	// ErrExecution is matched when a tool has no implementation or its implementation failed
	ErrExecution = errors.New("execution error")

	// ErrInvalidProvider is matched by unsupported or unimplemented model providers
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrContentParsing is matched when model content is not the expected structured shape
	ErrContentParsing = errors.New("content parsing error")

	// ErrProvider is matched when the backend call itself failed
	ErrProvider = errors.New("provider error")

	// ErrLLMModel is matched by an empty or invalid model identifier
	ErrLLMModel = errors.New("llm model error")
)

var sentinels = map[Code]error{
	CodeInvalidImplementation: ErrInvalidImplementation,
	CodeInvalidSecrets:        ErrInvalidSecrets,
	CodeExecution:             ErrExecution,
	CodeInvalidProvider:       ErrInvalidProvider,
	CodeContentParsing:        ErrContentParsing,
	CodeProvider:              ErrProvider,
	CodeLLMModel:              ErrLLMModel,
}

// Error is a classified neuron error
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's code
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// New creates an error with a formatted message
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error with a formatted message that wraps cause
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Message returns a printable message for any recovered value
func Message(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "unknown error"
	case error:
		return val.Error()
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
