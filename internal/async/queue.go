package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
	"github.com/joseph-ayodele/invoice-checker/internal/extract"
)

// Job is one submitted PDF.
type Job struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	Path        string
	Params      extract.Params
	Config      *entity.ExtractionConfig // nil: resolve from the invoice type
	SubmittedAt time.Time
}

// Handler processes a job. It is expected to handle its own failures.
type Handler interface {
	Handle(ctx context.Context, job Job)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job)

func (f HandlerFunc) Handle(ctx context.Context, job Job) { f(ctx, job) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}
