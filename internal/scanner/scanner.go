package scanner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"datanchor/internal/model"
)

// DefaultChunkSize bounds a single eth_getLogs query. RPC providers reject
// much wider ranges.
const DefaultChunkSize uint64 = 50_000

// Transient RPC failures on a single chunk are retried in place before the
// whole job is handed back to the queue's retry budget.
const (
	chunkMaxRetries   = 2
	chunkRetryBackoff = 500 * time.Millisecond
)

// LogFilterer fetches raw logs for a block range.
type LogFilterer interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Scanner queries the data registry contract for JobComplete events over a
// bounded block range, chunk by chunk.
type Scanner struct {
	client    LogFilterer
	contract  common.Address
	chunkSize uint64
	logger    *zap.Logger
}

func New(client LogFilterer, contract common.Address, chunkSize uint64, logger *zap.Logger) *Scanner {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		client:    client,
		contract:  contract,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// ScanJobComplete returns all decodable JobComplete events in [fromBlock,
// toBlock], in block order across chunks. Logs that fail to decode are
// skipped, not fatal.
func (s *Scanner) ScanJobComplete(ctx context.Context, fromBlock, toBlock uint64) ([]model.JobCompleteEvent, error) {
	topic, err := JobCompleteTopic()
	if err != nil {
		return nil, fmt.Errorf("event abi: %w", err)
	}

	ranges, err := SplitRange(fromBlock, toBlock, s.chunkSize)
	if err != nil {
		return nil, err
	}

	events := make([]model.JobCompleteEvent, 0)
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		s.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		var logs []types.Log
		err = withRetry(ctx, chunkMaxRetries, chunkRetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = s.client.FilterLogs(ctx, blockRange.From, blockRange.To, []common.Address{s.contract}, []common.Hash{topic})
			if err != nil {
				s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("filter logs [%d,%d]: %w", blockRange.From, blockRange.To, err)
		}

		for _, log := range logs {
			event, err := DecodeJobComplete(log)
			if err != nil {
				s.logger.Debug("skip undecodable log",
					zap.Error(err),
					zap.Uint64("block", log.BlockNumber),
					zap.String("tx", log.TxHash.Hex()),
				)
				continue
			}
			events = append(events, event)
		}
	}

	return events, nil
}

// DecodeJobComplete decodes a raw log against the JobComplete signature. All
// three arguments are indexed, so they live entirely in the topics.
func DecodeJobComplete(log types.Log) (model.JobCompleteEvent, error) {
	topic, err := JobCompleteTopic()
	if err != nil {
		return model.JobCompleteEvent{}, err
	}
	if len(log.Topics) != 4 {
		return model.JobCompleteEvent{}, fmt.Errorf("expected 4 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != topic {
		return model.JobCompleteEvent{}, fmt.Errorf("unexpected topic0: %s", log.Topics[0].Hex())
	}

	return model.JobCompleteEvent{
		Attestator:  common.BytesToAddress(log.Topics[1].Bytes()).Hex(),
		JobID:       new(big.Int).SetBytes(log.Topics[2].Bytes()),
		FileID:      new(big.Int).SetBytes(log.Topics[3].Bytes()),
		TxHash:      log.TxHash.Hex(),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}
