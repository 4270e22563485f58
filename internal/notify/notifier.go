package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

// EventType names what changed.
type EventType string

const (
	DocumentsUpdated        EventType = "documents_updated"
	SelectedDocumentChanged EventType = "selected_document_changed"
	SelectedTableChanged    EventType = "selected_table_changed"
	ProgressUpdated         EventType = "progress_updated"
	DocumentProcessed       EventType = "document_processed"
	ActiveConfigChanged     EventType = "active_config_changed"
)

// Event is delivered to subscribers. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType
	BatchID     string
	Documents   []*entity.Document
	Document    *entity.Document
	OldDocument *entity.Document
	Table       *entity.Table
	OldTable    *entity.Table
	Progress    float64
	Status      constants.JobStatus
	Config      string
	Time        time.Time
}

// Handler consumes events on the notifier's consumer context.
type Handler func(Event)

// Publisher is the producer side used by the engine.
type Publisher interface {
	Publish(ev Event)
	Invoke(fn func())
}

// Executor runs fn on the consumer's own execution context and returns once it ran.
type Executor func(fn func())

type Option func(*Notifier)

// WithExecutor routes every delivery through exec instead of running it on the dispatcher goroutine.
func WithExecutor(exec Executor) Option {
	return func(n *Notifier) {
		if exec != nil {
			n.exec = exec
		}
	}
}

// Notifier hands events from any goroutine to one dispatcher, which delivers them in publish
// order. Publish never blocks on subscribers.
type Notifier struct {
	logger *slog.Logger
	exec   Executor

	mu     sync.Mutex
	queue  []func()
	subs   map[int]Handler
	nextID int
	closed bool

	wake chan struct{}
	done chan struct{}
}

func New(logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		logger: logger,
		exec:   func(fn func()) { fn() },
		subs:   map[int]Handler{},
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(n)
	}
	go n.run()
	return n
}

// Subscribe registers h and returns a func removing it.
func (n *Notifier) Subscribe(h Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = h
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish enqueues ev for delivery to all subscribers.
func (n *Notifier) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	n.enqueue(func() { n.deliver(ev) })
}

// Invoke runs fn on the consumer context, ordered with published events.
func (n *Notifier) Invoke(fn func()) {
	if fn == nil {
		return
	}
	n.enqueue(func() { n.safe("invoke", fn) })
}

// Flush waits until everything enqueued before the call has been delivered.
func (n *Notifier) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	if !n.enqueue(func() { close(marker) }) {
		return nil
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush notifier: %w", ctx.Err())
	}
}

// Close delivers what is queued and stops the dispatcher. Later publishes are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.mu.Unlock()
	n.signal()
	<-n.done
}

func (n *Notifier) enqueue(item func()) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.Debug("notifier closed, dropping item")
		return false
	}
	n.queue = append(n.queue, item)
	n.mu.Unlock()
	n.signal()
	return true
}

func (n *Notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for range n.wake {
		for {
			n.mu.Lock()
			batch := n.queue
			n.queue = nil
			closed := n.closed
			n.mu.Unlock()

			for _, item := range batch {
				n.safe("dispatch", func() { n.exec(item) })
			}
			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
		}
	}
}

func (n *Notifier) deliver(ev Event) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, n.subs[id])
	}
	n.mu.Unlock()

	for _, h := range handlers {
		n.safe(string(ev.Type), func() { h(ev) })
	}
}

func (n *Notifier) safe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notification panicked", "what", what, "panic", r)
		}
	}()
	fn()
}
