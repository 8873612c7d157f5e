package sommos

import (
	"context"
	"time"

	"github.com/Thijssvd/SommOS-sub001/id"
)

// JobMeta is the job metadata the engine injects into every handler
// context. Handlers that need to know which job or attempt they are
// serving read it with JobMetaFromContext.
type JobMeta struct {
	JobID   id.JobID
	Type    string
	Attempt int
	Timeout time.Duration
}

type jobMetaKey struct{}

// WithJobMeta returns a context carrying the given job metadata.
func WithJobMeta(ctx context.Context, m JobMeta) context.Context {
	return context.WithValue(ctx, jobMetaKey{}, m)
}

// JobMetaFromContext extracts the job metadata injected by the engine.
// The second return value is false when the context did not come from a
// task execution.
func JobMetaFromContext(ctx context.Context) (JobMeta, bool) {
	m, ok := ctx.Value(jobMetaKey{}).(JobMeta)
	return m, ok
}
