package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Observer receives dispatcher telemetry. Implemented by the metrics package.
type Observer interface {
	QueueDepth(workerID string, depth int)
	AuditWritten(action domain.AuditAction)
	AuditFailed(action domain.AuditAction)
}

// Dispatcher routes audit events to a fixed set of workers sharded on the
// user id, so the events of one record are written in commit order.
type Dispatcher struct {
	workers []chan domain.AuditEvent
	repo    ports.AuditRepository
	obs     Observer
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. obs may be nil.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, obs Observer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if obs == nil {
		obs = nopObserver{}
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		repo:    repo,
		obs:     obs,
		log:     log.With().Str("component", "audit_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

var _ ports.AuditPublisher = (*Dispatcher)(nil)

// Start launches all worker goroutines. Workers exit once Close has been
// called and their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues an event on the worker owning its user id. It blocks only
// when that worker's buffer is full. Events published after Close are dropped.
func (d *Dispatcher) Publish(event domain.AuditEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("event_id", event.ID).Msg("audit event dropped after close")
		return
	}
	idx := d.shardIndex(event.UserID)
	d.workers[idx] <- event
	d.obs.QueueDepth(strconv.Itoa(idx), len(d.workers[idx]))
}

// Close stops accepting events and waits for the workers to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) shardIndex(userID int) int {
	if userID < 0 {
		userID = -userID
	}
	return userID % len(d.workers)
}

// runWorker keeps writing after ctx is cancelled so that Close can drain
// the buffer; each write gets its own timeout.
func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for event := range ch {
		d.obs.QueueDepth(workerID, len(ch))

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := d.repo.Insert(writeCtx, &event)
		cancel()

		if err != nil {
			d.obs.AuditFailed(event.Action)
			d.log.Error().Err(err).
				Str("event_id", event.ID).
				Int("user_id", event.UserID).
				Int("worker_id", id).
				Msg("audit write failed")
			continue
		}
		d.obs.AuditWritten(event.Action)
	}
}

type nopObserver struct{}

func (nopObserver) QueueDepth(string, int) {}
func (nopObserver) AuditWritten(domain.AuditAction) {}
func (nopObserver) AuditFailed(domain.AuditAction) {}
