package scoring

import "errors"

// ErrInvalidCriteria is returned for an empty, negative, non-finite or
// zero-sum criteria vector.
var ErrInvalidCriteria = errors.New("invalid criteria")
