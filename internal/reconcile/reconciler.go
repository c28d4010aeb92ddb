package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"datanchor/internal/model"
	"datanchor/internal/store"
)

// DefaultInterval is how often the sweep runs.
const DefaultInterval = 5 * time.Minute

// Enqueuer hands resolve-attestator jobs to the queue fabric. Jobs share a
// deterministic id with the ones mint enqueues, so duplicates collapse.
type Enqueuer interface {
	EnqueueResolveAttestator(ctx context.Context, job model.ResolveAttestatorJob) error
}

// Reconciler re-drives attestator resolution for every minted record still
// missing its evidence. It never gives up on a record; the periodic sweep is
// the retry mechanism of last resort.
type Reconciler struct {
	store    store.Store
	enqueuer Enqueuer
	logger   *zap.Logger
}

func New(recordStore store.Store, enqueuer Enqueuer, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:    recordStore,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Run executes one sweep: one resolve job per Minted-but-not-Attested record.
func (r *Reconciler) Run(ctx context.Context) error {
	records, err := r.store.FindMissingAttestator(ctx)
	if err != nil {
		return fmt.Errorf("find missing attestators: %w", err)
	}

	r.logger.Info("reconcile sweep", zap.Int("missing", len(records)))

	for _, rec := range records {
		err := r.enqueuer.EnqueueResolveAttestator(ctx, model.ResolveAttestatorJob{
			TokenAddress: rec.TokenAddress,
			FileID:       rec.FileID,
			BlockNumber:  rec.BlockNumber,
		})
		if err != nil {
			return fmt.Errorf("enqueue resolve for %s: %w", rec.TokenAddress, err)
		}
	}

	return nil
}
