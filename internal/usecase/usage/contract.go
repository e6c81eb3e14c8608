package usage

import (
	"context"

	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
)

// RecordReader fetches a user's record for a day. Reading never creates a record.
type RecordReader interface {
	Get(ctx context.Context, userID string, day domusage.Day) (domusage.Record, error)
}
