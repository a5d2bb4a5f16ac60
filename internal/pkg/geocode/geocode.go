package geocode

import (
	"context"
)

// Resolver turns coordinates into a human-readable address. The address
// feeds the capture prerequisite of the same name; resolution failures
// leave that prerequisite unsatisfied instead of failing the session.
type Resolver interface {
	Reverse(ctx context.Context, latitude, longitude float64) (string, error)
}
