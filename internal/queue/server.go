package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"datanchor/internal/model"
)

// Minter executes a mint job.
type Minter interface {
	Mint(ctx context.Context, job model.MintJob) (*model.MintRecord, error)
}

// Resolver executes a resolve-attestator job.
type Resolver interface {
	Process(ctx context.Context, job model.ResolveAttestatorJob) error
}

// Reconciler executes one reconciliation sweep.
type Reconciler interface {
	Run(ctx context.Context) error
}

// NewServer builds the queue consumer pool over the static topology.
func NewServer(redis asynq.RedisClientOpt, topo Topology, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      topo.Queues,
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return retryBaseDelay << n
		},
		Logger: zapLogger{logger.Sugar()},
	})
}

// NewMux routes each task type to its processor.
func NewMux(minter Minter, resolver Resolver, reconciler Reconciler) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeMintDAT, func(ctx context.Context, task *asynq.Task) error {
		job, err := ParseMintJob(task)
		if err != nil {
			return err
		}
		_, err = minter.Mint(ctx, job)
		return err
	})

	mux.HandleFunc(TypeResolveAttestator, func(ctx context.Context, task *asynq.Task) error {
		job, err := ParseResolveJob(task)
		if err != nil {
			return err
		}
		return resolver.Process(ctx, job)
	})

	mux.HandleFunc(TypeReconcile, func(ctx context.Context, _ *asynq.Task) error {
		return reconciler.Run(ctx)
	})

	return mux
}

// NewScheduler builds the periodic driver for the reconciliation sweep. The
// reconcile task carries no retry budget; the next tick is its retry.
func NewScheduler(redis asynq.RedisClientOpt, interval time.Duration, logger *zap.Logger) (*asynq.Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Logger: zapLogger{logger.Sugar()},
	})

	_, err := scheduler.Register(
		"@every "+interval.String(),
		asynq.NewTask(TypeReconcile, nil),
		asynq.Queue(QueueReconcile),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return nil, err
	}
	return scheduler, nil
}

// zapLogger adapts zap to asynq's logger interface.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l zapLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l zapLogger) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l zapLogger) Error(args ...interface{}) { l.sugar.Error(args...) }
func (l zapLogger) Fatal(args ...interface{}) { l.sugar.Fatal(args...) }
