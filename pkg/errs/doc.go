// Package errs defines the error taxonomy shared by tools, the model gateway
// and the agent loop.
//
// Invariants:
// - Errors raised by the tool, llm and agent packages are *Error values with a Code.
// - errors.Is matches an *Error against the sentinel for its Code.
// - The wrapped cause, if any, stays reachable through errors.Unwrap.
//
// Usage:
//
//	err := errs.New(errs.CodeInvalidSecrets, "Missing required secrets: %s", "API_KEY")
//	if errors.Is(err, errs.ErrInvalidSecrets) {
//		// ...
//	}
package errs
