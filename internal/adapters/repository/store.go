// Package repository keeps composition results and ranks finished teams.
package repository

import (
	"context"
	"time"

	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
)

// Record is the stored state of one composition request.
type Record struct {
	// Rank is 1-based among successful compositions, 0 otherwise.
	Rank        int
	ID          string
	Status      model.Status
	Request     model.CompositionRequest
	SubmittedAt time.Time
	FinishedAt  time.Time
	Report      composer.Report
	Error       string
}

// Store provides read/write access to composition results.
type Store interface {
	// Submit registers a pending request. Returns ErrDuplicate when the id
	// is already known.
	Submit(ctx context.Context, req model.CompositionRequest) error
	// Start marks a pending request as running.
	Start(ctx context.Context, id string) error
	// Finish stores the outcome of a run. A nil error ranks the team.
	Finish(ctx context.Context, id string, report composer.Report, runErr error) error
	// Forget drops a request that never started.
	Forget(ctx context.Context, id string) error

	// Get returns a record. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (Record, error)

	// TopN returns the best finished teams ordered by mean ability desc.
	TopN(ctx context.Context, n int) ([]Record, error)

	// Count returns the number of records per status.
	Count(ctx context.Context) map[model.Status]int
}
