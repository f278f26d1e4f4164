// Package watcher provides event-driven UI awareness: a bounded queue of
// UIA-style events with debouncing and noise filtering, started/stopped on
// demand and polled by daemon clients, mirroring watcher.py. The actual
// accessibility-event subscription is provided by an EventSource — wiring a
// real Windows UIA COM event sink is out of scope for this module.
package watcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nexusdaemon/nexus/internal/events/bus"
)

// DebounceWindow is the duration within which duplicate events (same type
// and key) are suppressed, matching DEBOUNCE_MS.
const DebounceWindow = 150 * time.Millisecond

// QueueSize bounds the pending-event queue; once full, new events are
// dropped rather than blocking the event source.
const QueueSize = 500

var noiseNames = map[string]bool{
	"": true, "cursor": true, "Cursor": true, "Desktop": true, "Program Manager": true,
	"Start": true, "Taskbar": true, "Task Switching": true,
}

var noiseClasses = map[string]bool{
	"Progman": true, "Shell_TrayWnd": true, "Shell_SecondaryTrayWnd": true,
	"TopLevelWindowForOverflowXamlIsland": true,
}

// Event is one UIA-style occurrence: a focus change, window open/close,
// structure change, or property change.
type Event struct {
	Type       string         `json:"event"`
	Element    string         `json:"element"`
	Class      string         `json:"class,omitempty"`
	ControlType int           `json:"control_type,omitempty"`
	EventID    int            `json:"event_id,omitempty"`
	Property   string         `json:"property,omitempty"`
	PropertyID int            `json:"property_id,omitempty"`
	NewValue   string         `json:"new_value,omitempty"`
	Change     string         `json:"change,omitempty"`
	Bounds     map[string]int `json:"bounds,omitempty"`
	Timestamp  float64        `json:"timestamp"`
}

func isNoisy(name, className string) bool {
	if noiseNames[name] {
		return true
	}
	if noiseClasses[className] {
		return true
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "tooltip") || strings.Contains(className, "ToolTip") {
		return true
	}
	return false
}

// EventSource is the accessibility-event backend the watcher subscribes
// to; Subscribe blocks until ctx is canceled, pushing raw events to emit.
type EventSource interface {
	Subscribe(ctx context.Context, kinds []string, emit func(Event)) ([]string, error)
}

// Watcher owns the event queue, debounce state, and the background
// subscription goroutine.
type Watcher struct {
	source EventSource
	bus    bus.EventBus // optional: published alongside queuing, for the event-stream gateway's fan-out

	mu       sync.Mutex
	queue    []Event
	running  bool
	cancel   context.CancelFunc
	lastSeen map[string]time.Time
}

func New(source EventSource, eventBus bus.EventBus) *Watcher {
	return &Watcher{source: source, bus: eventBus, lastSeen: make(map[string]time.Time)}
}

func (w *Watcher) debounce(eventType, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	lookup := eventType + "|" + key
	if last, ok := w.lastSeen[lookup]; ok && now.Sub(last) < DebounceWindow {
		return true
	}
	w.lastSeen[lookup] = now
	return false
}

func (w *Watcher) emit(evt Event) {
	if isNoisy(evt.Element, evt.Class) {
		return
	}
	if w.debounce(evt.Type, evt.Element) {
		return
	}
	evt.Timestamp = float64(time.Now().UnixNano()) / 1e9

	w.mu.Lock()
	if len(w.queue) >= QueueSize {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, evt)
	w.mu.Unlock()

	if w.bus != nil {
		_ = w.bus.Publish(context.Background(), "watcher.event."+evt.Type, bus.NewEvent(evt.Type, "watcher", map[string]any{
			"element": evt.Element, "class": evt.Class,
		}))
	}
}

// Start begins watching, returning the set of event kinds that were
// successfully subscribed. An empty kinds slice subscribes to all of
// "focus", "window", "structure", "property".
func (w *Watcher) Start(kinds []string) (map[string]any, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return map[string]any{"command": "watch", "ok": false, "error": "Watcher already running"}, nil
	}
	w.queue = nil
	w.lastSeen = make(map[string]time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	subscribed, err := w.source.Subscribe(ctx, kinds, w.emit)
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return map[string]any{"command": "watch", "ok": false, "error": err.Error()}, nil
	}

	return map[string]any{"command": "watch", "ok": true, "subscriptions": subscribed, "message": "Watcher started"}, nil
}

// Stop cancels the subscription.
func (w *Watcher) Stop() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return map[string]any{"command": "watch", "ok": false, "error": "Watcher not running"}
	}
	w.cancel()
	w.running = false
	return map[string]any{"command": "watch", "ok": true, "message": "Watcher stopped"}
}

// PollEvents drains up to maxEvents pending events, waiting up to timeout
// for the first one if the queue is currently empty.
func (w *Watcher) PollEvents(maxEvents int, timeout time.Duration) []Event {
	deadline := time.Now().Add(timeout)
	for {
		w.mu.Lock()
		if len(w.queue) > 0 || timeout <= 0 || time.Now().After(deadline) {
			break
		}
		w.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	defer w.mu.Unlock()

	if len(w.queue) == 0 {
		return nil
	}
	n := maxEvents
	if n > len(w.queue) {
		n = len(w.queue)
	}
	out := append([]Event{}, w.queue[:n]...)
	w.queue = w.queue[n:]
	return out
}

// Status reports whether the watcher is running and how many events are queued.
func (w *Watcher) Status() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return map[string]any{"command": "watch", "running": w.running, "pending_events": len(w.queue)}
}

// FilterEvents narrows a list of already-captured events by type, excluded
// window class, or a name substring. Pure and independently testable.
func FilterEvents(events []Event, eventTypes, excludeClasses []string, nameContains string) []Event {
	result := events
	if eventTypes != nil {
		set := make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			set[t] = true
		}
		filtered := make([]Event, 0, len(result))
		for _, e := range result {
			if set[e.Type] {
				filtered = append(filtered, e)
			}
		}
		result = filtered
	}
	if excludeClasses != nil {
		set := make(map[string]bool, len(excludeClasses))
		for _, c := range excludeClasses {
			set[c] = true
		}
		filtered := make([]Event, 0, len(result))
		for _, e := range result {
			if !set[e.Class] {
				filtered = append(filtered, e)
			}
		}
		result = filtered
	}
	if nameContains != "" {
		lower := strings.ToLower(nameContains)
		filtered := make([]Event, 0, len(result))
		for _, e := range result {
			if strings.Contains(strings.ToLower(e.Element), lower) {
				filtered = append(filtered, e)
			}
		}
		result = filtered
	}
	return result
}
