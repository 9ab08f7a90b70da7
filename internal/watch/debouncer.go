package watch

import (
	"sync"
	"time"
)

// eventDebouncer batches file events; the latest event per path wins
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]EventType
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	flushing sync.WaitGroup
	onFlush  func(map[string]EventType)
}

func newEventDebouncer(debounce time.Duration, onFlush func(map[string]EventType)) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]EventType),
		debounce: debounce,
		onFlush:  onFlush,
	}
}

// addEvent records an event and restarts the quiet period
func (d *eventDebouncer) addEvent(path string, eventType EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	// A write to a file created in the same batch is still a creation
	if prev, ok := d.events[path]; ok && prev == EventCreate && eventType == EventWrite {
		eventType = EventCreate
	}
	d.events[path] = eventType

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]EventType)
	d.flushing.Add(1)
	d.mu.Unlock()

	defer d.flushing.Done()
	d.onFlush(events)
}

// stop cancels a pending flush and waits for a running one
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.events = make(map[string]EventType)
	d.mu.Unlock()

	d.flushing.Wait()
}
