package job

import "context"

// Definition is a typed job definition with a handler function.
// T is the payload type (must be JSON-serializable). The handler's
// result, when non-nil, is JSON-serialized into the job's Result field.
type Definition[T any] struct {
	// Name is the unique identifier for this job type.
	Name string

	// Handler is the function that processes the job payload.
	Handler func(ctx context.Context, payload T) (any, error)

	// Opts configures priority, timeout, attempts, and delay defaults
	// for jobs submitted through this definition.
	Opts Options
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](name string, handler func(ctx context.Context, payload T) (any, error), opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Name:    name,
		Handler: handler,
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}
