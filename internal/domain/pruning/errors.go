package pruning

import (
	"errors"
	"fmt"

	"github.com/okian/squad/internal/domain/model"
)

// Sentinel kinds for pruning.
var (
	ErrPruneDeadlock = errors.New("prune deadlock")
	ErrUnknownMember = errors.New("team member not in pool")
)

// DeadlockError reports a cut player with no cheaper replacement.
type DeadlockError struct {
	Cut        model.CutCandidate
	Considered int
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("%s: no cheaper %s replacement for player %d at %s (salary %.4f, %d candidates considered)",
		ErrPruneDeadlock, e.Cut.Group, e.Cut.ID, e.Cut.Position, e.Cut.Salary, e.Considered)
}

// Unwrap lets errors.Is match ErrPruneDeadlock.
func (e *DeadlockError) Unwrap() error { return ErrPruneDeadlock }
