package resolve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"datanchor/internal/model"
	"datanchor/internal/store"
)

// DefaultLookbackBlocks is how far behind the mint transaction the worker
// scans for the attestation event. The event is assumed to land within this
// many blocks of the mint; that is a policy choice, not a protocol guarantee.
const DefaultLookbackBlocks uint64 = 100

// ErrMalformedJob reports a resolve job without a block number. Retrying it
// fails identically, but the queue's generic retry budget still applies.
var ErrMalformedJob = errors.New("resolve job missing block number")

// Scanner finds JobComplete events in a block range.
type Scanner interface {
	ScanJobComplete(ctx context.Context, fromBlock, toBlock uint64) ([]model.JobCompleteEvent, error)
}

// Worker resolves the attestator for a minted record by scanning the lookback
// window below the mint block.
type Worker struct {
	store    store.Store
	scanner  Scanner
	lookback uint64
	logger   *zap.Logger
}

func NewWorker(recordStore store.Store, scanner Scanner, lookback uint64, logger *zap.Logger) *Worker {
	if lookback == 0 {
		lookback = DefaultLookbackBlocks
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		store:    recordStore,
		scanner:  scanner,
		lookback: lookback,
		logger:   logger,
	}
}

// Process scans [blockNumber-lookback, blockNumber] and records the first
// event matching the job's file id. No match is not an error: the event may
// not exist yet, and reconciliation re-drives the job later.
func (w *Worker) Process(ctx context.Context, job model.ResolveAttestatorJob) error {
	if job.BlockNumber == 0 {
		return fmt.Errorf("%w: token %s", ErrMalformedJob, job.TokenAddress)
	}

	fromBlock := uint64(0)
	if job.BlockNumber > w.lookback {
		fromBlock = job.BlockNumber - w.lookback
	}

	events, err := w.scanner.ScanJobComplete(ctx, fromBlock, job.BlockNumber)
	if err != nil {
		return fmt.Errorf("scan [%d,%d]: %w", fromBlock, job.BlockNumber, err)
	}

	for _, event := range events {
		if event.FileID.String() != job.FileID {
			continue
		}

		w.logger.Info("attestator resolved",
			zap.String("token", job.TokenAddress),
			zap.String("file_id", job.FileID),
			zap.String("attestator", event.Attestator),
			zap.Uint64("block", event.BlockNumber),
		)

		// First match wins; later events in the window are ignored.
		return w.store.UpdateAttestation(ctx, job.TokenAddress, job.FileID, model.Attestation{
			Attestator:  event.Attestator,
			TxHash:      event.TxHash,
			BlockNumber: event.BlockNumber,
		})
	}

	w.logger.Debug("no attestation event in window",
		zap.String("token", job.TokenAddress),
		zap.Uint64("from", fromBlock),
		zap.Uint64("to", job.BlockNumber),
	)
	return nil
}
