package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const (
	DebitPollTimeout  = 1 * time.Second
	DebitRetryBackoff = 5 * time.Second
)

// Debiter is the ledger operation the worker replays.
type Debiter interface {
	Debit(ctx context.Context, userID, amount int, memo string) error
}

// DebitQueue pushes failed wallet debits onto wallet_debit_retry_queue.
type DebitQueue struct {
	rdb redis.Cmdable
}

// NewDebitQueue creates a new DebitQueue.
func NewDebitQueue(rdb redis.Cmdable) *DebitQueue {
	return &DebitQueue{rdb: rdb}
}

// Enqueue appends a job to the retry queue.
func (q *DebitQueue) Enqueue(ctx context.Context, job model.DebitJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal debit job: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.DebitRetryQueue, raw).Err()
}

// Len returns the number of jobs waiting.
func (q *DebitQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, config.WorkerKey.DebitRetryQueue).Result()
}

// DebitWorker consumes wallet_debit_retry_queue and replays each debit with
// its original memo until it succeeds or the retry limit is hit.
type DebitWorker struct {
	rdb     redis.Cmdable
	wallet  Debiter
	limit   int
	backoff time.Duration
	log     zerolog.Logger
}

// NewDebitWorker creates a new DebitWorker.
func NewDebitWorker(rdb redis.Cmdable, wallet Debiter, limit int, log zerolog.Logger) *DebitWorker {
	if limit <= 0 {
		limit = 1
	}
	return &DebitWorker{
		rdb:     rdb,
		wallet:  wallet,
		limit:   limit,
		backoff: DebitRetryBackoff,
		log:     log.With().Str("component", "debit_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *DebitWorker) Start(ctx context.Context) {
	w.log.Info().Int("retry_limit", w.limit).Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *DebitWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, DebitPollTimeout, config.WorkerKey.DebitRetryQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var job model.DebitJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if next := w.settle(ctx, job); next != nil {
		w.requeue(ctx, *next)
		select {
		case <-ctx.Done():
		case <-time.After(w.backoff):
		}
	}
}

// settle replays one debit. It returns the job to requeue, or nil when the
// job succeeded or was dropped.
func (w *DebitWorker) settle(ctx context.Context, job model.DebitJob) *model.DebitJob {
	err := w.wallet.Debit(ctx, job.UserID, job.Amount, job.Memo)
	if err == nil {
		w.log.Info().
			Str("session_code", job.SessionCode).
			Int("user_id", job.UserID).
			Int("amount", job.Amount).
			Msg("Wallet debit reconciled")
		return nil
	}

	job.Attempts++
	if job.Attempts >= w.limit {
		w.log.Error().Err(err).
			Str("session_code", job.SessionCode).
			Int("user_id", job.UserID).
			Int("amount", job.Amount).
			Int("attempts", job.Attempts).
			Msg("Wallet debit abandoned after retry limit")
		return nil
	}

	w.log.Warn().Err(err).
		Str("session_code", job.SessionCode).
		Int("attempts", job.Attempts).
		Msg("Wallet debit failed, requeueing")
	return &job
}

func (w *DebitWorker) requeue(ctx context.Context, job model.DebitJob) {
	raw, err := json.Marshal(job)
	if err != nil {
		w.log.Error().Err(err).Msg("Marshal requeue payload")
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.DebitRetryQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("session_code", job.SessionCode).Msg("Requeue failed")
	}
}

// drain makes one pass over the jobs still queued at shutdown. Jobs that
// fail again stay queued for the next process start.
func (w *DebitWorker) drain(ctx context.Context) {
	n, err := w.rdb.LLen(ctx, config.WorkerKey.DebitRetryQueue).Result()
	if err != nil || n == 0 {
		return
	}

	settled := 0
	for i := int64(0); i < n; i++ {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.DebitRetryQueue).Result()
		if err != nil {
			break
		}

		var job model.DebitJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		if next := w.settle(ctx, job); next != nil {
			w.requeue(ctx, *next)
			continue
		}
		settled++
	}

	if settled > 0 {
		w.log.Info().Int("count", settled).Msg("Drained remaining items")
	}
}
