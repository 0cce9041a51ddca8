package usecase

import (
	"context"
	"log/slog"
	"sync"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
)

// MemoryQueue records events in memory for tests.
type MemoryQueue struct {
	mu     sync.Mutex
	events []*auditDomain.Event
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, event *auditDomain.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

// Events returns a copy of the recorded events in enqueue order.
func (q *MemoryQueue) Events() []*auditDomain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*auditDomain.Event, len(q.events))
	copy(out, q.events)
	return out
}

// OfKind returns the recorded events of one kind.
func (q *MemoryQueue) OfKind(kind string) []*auditDomain.Event {
	var out []*auditDomain.Event
	for _, e := range q.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ChannelQueue hands events to a processor on a fixed pool of goroutines.
// When the buffer is full the event is dropped and ErrQueueFull returned, so a
// slow sink can never hold up a client response.
type ChannelQueue struct {
	events    chan *auditDomain.Event
	processor Processor
	workers   int
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewChannelQueue creates a queue with the given buffer size and worker count.
func NewChannelQueue(size, workers int, processor Processor, logger *slog.Logger) *ChannelQueue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &ChannelQueue{
		events:    make(chan *auditDomain.Event, size),
		processor: processor,
		workers:   workers,
		logger:    logger,
	}
}

// Start launches the workers. They run until Close.
func (q *ChannelQueue) Start(ctx context.Context) {
	// Workers outlive request contexts; only values are kept.
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for event := range q.events {
				if err := q.processor.Process(ctx, event); err != nil {
					q.logger.Error("failed to process audit event",
						slog.String("event_id", event.ID.String()),
						slog.String("kind", event.Kind),
						slog.String("action", event.Action),
						slog.Any("error", err),
					)
				}
			}
		}()
	}
}

func (q *ChannelQueue) Enqueue(_ context.Context, event *auditDomain.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return auditDomain.ErrQueueClosed
	}

	select {
	case q.events <- event:
		return nil
	default:
		q.logger.Warn("audit queue full, dropping event",
			slog.String("kind", event.Kind),
			slog.String("action", event.Action),
		)
		return auditDomain.ErrQueueFull
	}
}

// Close stops accepting events and waits for the buffered ones to be processed.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()

	q.wg.Wait()
}
