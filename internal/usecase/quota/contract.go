package quota

import (
	"context"

	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

// Store is the usage persistence the gate reads and increments.
type Store interface {
	GetOrCreate(ctx context.Context, userID string, day domusage.Day) (domusage.Record, error)
	Increment(
		ctx context.Context, userID string, day domusage.Day, kind domusage.Kind, c cost.Micros,
	) (domusage.Record, error)
}
