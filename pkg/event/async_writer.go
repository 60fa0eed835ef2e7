package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// AsyncOptions configures batching and buffering of an AsyncWriter.
type AsyncOptions struct {
	BufferSize     int           // events queued in memory before Log falls back to a synchronous write
	BatchSize      int           // events per flush
	BatchTimeout   time.Duration // max wait before a partial batch is flushed
	StorageTimeout time.Duration // per-flush timeout
	Logger         *slog.Logger  // receives flush failures
}

// AsyncWriter decouples event producers from a slow BatchLogger. Log returns as
// soon as the event is queued; a background worker flushes batches on size or
// timeout. Flush failures are logged, not returned.
type AsyncWriter struct {
	store   BatchLogger
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	options AsyncOptions
	logger  *slog.Logger
}

var _ BatchLogger = (*AsyncWriter)(nil)

// NewAsyncWriter starts the background worker and returns the writer with its close func.
func NewAsyncWriter(store BatchLogger, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if store == nil {
		panic("event: batch logger cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	w := &AsyncWriter{
		store:   store,
		queue:   make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
		logger:  l.With(logger.Component("event.async_writer")),
	}

	w.wg.Add(1)
	go w.worker()

	return w, w.Close
}

// Log queues e. When the buffer is full the event is written synchronously
// so it is never dropped.
func (w *AsyncWriter) Log(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}

	select {
	case w.queue <- e.Clone():
		return nil
	default:
		return w.store.LogBatch(ctx, []Event{e})
	}
}

// LogBatch queues every event in order.
func (w *AsyncWriter) LogBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := w.Log(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	batch := make([]Event, 0, w.options.BatchSize)
	ticker := time.NewTicker(w.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.options.StorageTimeout)
		defer cancel()

		if err := w.store.LogBatch(ctx, batch); err != nil {
			w.logger.ErrorContext(ctx, "failed to flush events",
				logger.Count(len(batch)),
				logger.Error(err),
			)
		}

		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= w.options.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-w.done:
			for {
				select {
				case e := <-w.queue:
					batch = append(batch, e)
					if len(batch) >= w.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and waits for the queue to drain. If ctx
// expires first, queued events may be lost. Close is idempotent.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
