package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Triggering event names. Payload shapes are documented on the
// orchestrator inputs.
const (
	EventMessageProcess = "chat/message.process"
	EventSessionCreated = "therapy/session.created"
	EventMoodUpdated    = "mood/updated"
)

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Event is one workflow trigger. Events sharing a Key are delivered in
// order, one at a time; the RunID identifies the logical run so a retry
// resumes from the step memo instead of repeating side effects.
type Event struct {
	Name  string
	Key   string
	RunID string
	Data  any
}

type EventHandler func(ctx context.Context, ev Event) error

// Dispatcher is the in-process event-delivery layer for the async
// workflows. Delivery is at-least-once: a failed handler is retried
// with the same RunID, and idempotency is provided by the per-run step
// memo, not by the dispatcher.
type Dispatcher struct {
	timeout time.Duration
	retries int

	mu       sync.Mutex
	handlers map[string]EventHandler
	workers  map[string]chan Event
	closed   bool
	wg       sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, retries int) *Dispatcher {
	return &Dispatcher{
		timeout:  timeout,
		retries:  retries,
		handlers: make(map[string]EventHandler),
		workers:  make(map[string]chan Event),
	}
}

// On registers the handler for an event name. Registration must finish
// before the first Send.
func (d *Dispatcher) On(name string, fn EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = fn
}

// Send enqueues an event for asynchronous delivery. An empty RunID gets
// a random one, which forfeits memo reuse across process restarts;
// callers should derive deterministic run IDs from their payloads.
func (d *Dispatcher) Send(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	if _, ok := d.handlers[ev.Name]; !ok {
		return fmt.Errorf("no handler registered for event %q", ev.Name)
	}
	if ev.RunID == "" {
		ev.RunID = uuid.NewString()
	}

	key := ev.Key
	if key == "" {
		key = ev.Name
	}

	ch, ok := d.workers[key]
	if !ok {
		ch = make(chan Event, 32)
		d.workers[key] = ch
		d.wg.Add(1)
		go d.worker(ch)
	}

	ch <- ev
	return nil
}

// Close stops accepting events and waits for in-flight deliveries.
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

func (d *Dispatcher) worker(ch <-chan Event) {
	defer d.wg.Done()
	for ev := range ch {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.mu.Lock()
	handler := d.handlers[ev.Name]
	d.mu.Unlock()

	for attempt := 0; ; attempt++ {
		err := d.handleOnce(handler, ev)
		if err == nil {
			return
		}
		if attempt >= d.retries {
			slog.Error("event dropped after retries",
				"event", ev.Name, "run", ev.RunID, "attempts", attempt+1, "error", err)
			return
		}
		slog.Warn("event handler failed, retrying",
			"event", ev.Name, "run", ev.RunID, "attempt", attempt+1, "error", err)
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
}

func (d *Dispatcher) handleOnce(handler EventHandler, ev Event) error {
	// Delivery is detached from the sender's request context: the
	// triggering update may finish long before the workflow does.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return handler(ctx, ev)
}
