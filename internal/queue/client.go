package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"datanchor/internal/model"
)

// Retry policy applied to mint and resolve-attestator tasks. The delay
// compounds per attempt; the cron queue has no retry at all, its own period
// is the retry mechanism.
const (
	maxRetry       = 3
	retryBaseDelay = time.Second
)

// Client enqueues tasks into the queue fabric.
type Client struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewClient(redis asynq.RedisClientOpt, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: asynq.NewClient(redis),
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueMint queues a mint job, deduplicated per token.
func (c *Client) EnqueueMint(ctx context.Context, job model.MintJob) error {
	task, err := NewMintTask(job)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMint),
		asynq.TaskID(MintTaskID(job.TokenAddress)),
		asynq.MaxRetry(maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("mint already pending", zap.String("token", job.TokenAddress))
		return nil
	}
	return err
}

// EnqueueResolveAttestator queues a resolve-attestator job. The deterministic
// task id collapses the mint-driven and reconciliation-driven enqueues for a
// token into one pending job.
func (c *Client) EnqueueResolveAttestator(ctx context.Context, job model.ResolveAttestatorJob) error {
	task, err := NewResolveTask(job)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueResolve),
		asynq.TaskID(ResolveTaskID(job.TokenAddress)),
		asynq.MaxRetry(maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("resolve already pending", zap.String("token", job.TokenAddress))
		return nil
	}
	return err
}
