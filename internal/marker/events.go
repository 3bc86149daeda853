package marker

import (
	"fmt"
	"time"

	"github.com/cargotrack/routeplay/pkg/core"
)

// EventType names a marker lifecycle event.
type EventType int

const (
	EventStart EventType = iota
	EventPause
	EventResume
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is delivered to listeners. Elapsed is the running time of the
// current run, pauses excluded.
type Event struct {
	Type     EventType
	Elapsed  time.Duration
	Position core.GeoCoordinate
}

// Listener handles marker events.
type Listener func(Event)

type listener struct {
	fn   Listener
	once bool
}

// On registers fn for events of type t. The returned func unregisters it.
func (m *Marker) On(t EventType, fn Listener) (off func()) {
	l := &listener{fn: fn}
	m.listeners[t] = append(m.listeners[t], l)
	return func() { m.off(t, l) }
}

// Once registers fn for the next event of type t only.
func (m *Marker) Once(t EventType, fn Listener) (off func()) {
	l := &listener{fn: fn, once: true}
	m.listeners[t] = append(m.listeners[t], l)
	return func() { m.off(t, l) }
}

func (m *Marker) off(t EventType, l *listener) {
	ls := m.listeners[t]
	for i, x := range ls {
		if x == l {
			m.listeners[t] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (m *Marker) emit(e Event) {
	ls := m.listeners[e.Type]
	if len(ls) == 0 {
		return
	}

	snapshot := append([]*listener(nil), ls...)
	for _, l := range snapshot {
		if l.once {
			m.off(e.Type, l)
		}
	}
	for _, l := range snapshot {
		if m.disposed {
			return
		}
		l.fn(e)
	}
}
