package simulation

import (
	"context"

	"github.com/daniacca/chemsim/internal/store"
)

// ResultsSink receives the sampled counts of a run. *store.Store satisfies
// it.
type ResultsSink interface {
	BeginRun(ctx context.Context, run store.Run) error
	RecordStep(ctx context.Context, runID string, step int, counts map[string]int64) error
	FinishRun(ctx context.Context, runID string, steps int, completed bool) error
}

var _ ResultsSink = (*store.Store)(nil)
