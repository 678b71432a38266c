package selection

import (
	"errors"
	"fmt"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/position"
)

// Sentinel kinds for selection.
var (
	ErrInfeasibleQuota = errors.New("infeasible quota")
	ErrInvalidWeights  = errors.New("invalid selection weights")
	ErrInvalidRequest  = errors.New("invalid selection request")
)

// QuotaError reports where a selection ran out of eligible candidates.
type QuotaError struct {
	Group     model.RoleGroup
	Selected  int
	Remaining position.Quota
	Reason    string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s after %d of %d %s players (remaining %s)",
		ErrInfeasibleQuota, e.Reason, e.Selected, e.Group.Size(), e.Group, e.Remaining)
}

// Unwrap lets errors.Is match ErrInfeasibleQuota.
func (e *QuotaError) Unwrap() error { return ErrInfeasibleQuota }
