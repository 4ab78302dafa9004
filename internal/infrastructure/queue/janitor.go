package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/pkg/metrics"
)

const (
	defaultWorkers  = 2
	defaultAttempts = 5
	defaultDelay    = 2 * time.Second
	channelBuffer   = 256
)

// JanitorConfig tunes the retry loop.
type JanitorConfig struct {
	Workers  int
	Attempts int
	Delay    time.Duration
}

// BlobJanitor retries deletion of blobs that could not be removed inline,
// routing each reference to a fixed worker by hash.
type BlobJanitor struct {
	workers  []chan string
	store    ports.BlobStore
	attempts int
	delay    time.Duration
	log      zerolog.Logger
}

// NewBlobJanitor creates a BlobJanitor. Zero config values fall back to the
// package defaults.
func NewBlobJanitor(store ports.BlobStore, cfg JanitorConfig, log zerolog.Logger) *BlobJanitor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	j := &BlobJanitor{
		workers:  make([]chan string, cfg.Workers),
		store:    store,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		log:      log,
	}
	for i := range j.workers {
		j.workers[i] = make(chan string, channelBuffer)
	}
	return j
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (j *BlobJanitor) Start(ctx context.Context) {
	for i, ch := range j.workers {
		go j.runWorker(ctx, i, ch)
	}
}

// Collect queues ref for deletion. It never blocks: when the worker's
// buffer is full the ref is dropped and logged.
func (j *BlobJanitor) Collect(ref string) {
	idx := j.shardIndex(ref)
	select {
	case j.workers[idx] <- ref:
		metrics.BlobCleanupTotal.WithLabelValues("queued").Inc()
		metrics.BlobJanitorQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(j.workers[idx])))
	default:
		metrics.BlobCleanupTotal.WithLabelValues("dropped").Inc()
		j.log.Error().Str("ref", ref).Int("worker_id", idx).Msg("janitor queue full, orphaned blob dropped")
	}
}

// shardIndex maps a reference deterministically to a worker index.
func (j *BlobJanitor) shardIndex(ref string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ref))
	return int(h.Sum32() % uint32(len(j.workers)))
}

func (j *BlobJanitor) runWorker(ctx context.Context, id int, ch <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ref, ok := <-ch:
			if !ok {
				return
			}
			metrics.BlobJanitorQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			j.sweep(ctx, id, ref)
		}
	}
}

// sweep retries the deletion of ref with exponential backoff, starting at
// the configured delay, up to the configured attempts.
func (j *BlobJanitor) sweep(ctx context.Context, id int, ref string) {
	// The inline delete just failed; give the store a moment first.
	select {
	case <-ctx.Done():
		return
	case <-time.After(j.delay):
	}

	attempt := 0
	operation := func() error {
		attempt++
		return j.store.Delete(ctx, ref)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = j.delay
	policy.MaxElapsedTime = 0
	strategy := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(j.attempts-1)), ctx)

	err := backoff.RetryNotify(operation, strategy, func(err error, next time.Duration) {
		j.log.Debug().Err(err).Str("ref", ref).Int("attempt", attempt).Dur("next", next).Msg("orphaned blob delete retry failed")
	})
	if err == nil {
		metrics.BlobCleanupTotal.WithLabelValues("deleted").Inc()
		j.log.Info().Str("ref", ref).Int("attempt", attempt).Msg("orphaned blob deleted")
		return
	}
	if ctx.Err() != nil {
		return
	}

	metrics.BlobCleanupTotal.WithLabelValues("failed").Inc()
	j.log.Error().Err(err).
		Str("ref", ref).
		Int("worker_id", id).
		Int("attempts", attempt).
		Msg("giving up on orphaned blob")
}
