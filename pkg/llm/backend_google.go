package llm

import (
	"context"

	"github.com/harun/neuron/pkg/errs"
)

// googleBackend is recognized so configuration can name it, but every call fails
type googleBackend struct{}

func (googleBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	return nil, errs.New(errs.CodeInvalidProvider, "Google support not yet implemented")
}
