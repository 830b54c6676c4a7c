package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const saveTimeout = 5 * time.Second

var _ Logger = (*Worker)(nil)

// Worker saves events on a single goroutine so request handlers never
// wait on the events table.
type Worker struct {
	store Store
	queue chan Event
	wg    sync.WaitGroup

	// mu guards closed and every send on queue, so no send can race
	// the close in Shutdown.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

func NewWorker(store Store, bufferSize int) *Worker {
	return &Worker{
		store: store,
		queue: make(chan Event, bufferSize),
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for event := range w.queue {
			w.save(event)
		}
		slog.Info("event worker stopped", "dropped_events", w.dropped.Load())
	})
}

func (w *Worker) save(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := w.store.Save(ctx, event); err != nil {
		slog.Error("failed to save event", "error", err, "event_type", event.Type, "event_id", event.ID)
	}
}

// Log queues the event without blocking. It is dropped when the buffer
// is full or the worker has shut down.
func (w *Worker) Log(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(event, "event worker stopped, dropping event")
		return
	}
	select {
	case w.queue <- event:
	default:
		w.drop(event, "event queue full, dropping event")
	}
}

func (w *Worker) drop(event Event, msg string) {
	w.dropped.Add(1)
	slog.Warn(msg, "event_type", event.Type, "event_id", event.ID)
}

// Dropped reports how many events Log has turned away.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Shutdown stops accepting events and waits until everything already
// queued is saved. It is safe to call more than once.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
