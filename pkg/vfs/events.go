package vfs

import (
	"strconv"
	"sync"
	"time"
)

// EventType identifies the kind of filesystem event
type EventType int

const (
	EventSystemInitialized EventType = iota
	EventFileCreated
	EventFileDeleted
	EventFileRead
	EventFileWritten
	EventDirectoryCreated
	EventDirectoryDeleted
	EventFileCopied
	EventDirectoryCopied
	EventSymbolicLinkCreated
	EventError
)

// String returns a string representation of the EventType
func (et EventType) String() string {
	switch et {
	case EventSystemInitialized:
		return "SystemInitialized"
	case EventFileCreated:
		return "FileCreated"
	case EventFileDeleted:
		return "FileDeleted"
	case EventFileRead:
		return "FileRead"
	case EventFileWritten:
		return "FileWritten"
	case EventDirectoryCreated:
		return "DirectoryCreated"
	case EventDirectoryDeleted:
		return "DirectoryDeleted"
	case EventFileCopied:
		return "FileCopied"
	case EventDirectoryCopied:
		return "DirectoryCopied"
	case EventSymbolicLinkCreated:
		return "SymbolicLinkCreated"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the event type as its name.
func (et EventType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(et.String())), nil
}

// Event is an immutable record of an externally visible mutation or error.
type Event struct {
	Type       EventType `json:"type"`
	Path       string    `json:"path"`
	SourcePath string    `json:"sourcePath,omitempty"`
	TargetPath string    `json:"targetPath,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  int64     `json:"timestamp"`
}

const eventRingSize = 128

// EventBus fans filesystem events out to subscribers and retains a bounded
// ring of recent events for diagnostics.
type EventBus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	recent []Event
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription and closes the channel. A slow consumer whose buffer is full
// misses events rather than blocking the filesystem.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 32)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber and appends it to the
// recent ring.
func (b *EventBus) Publish(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, ev)
	if len(b.recent) > eventRingSize {
		b.recent = b.recent[len(b.recent)-eventRingSize:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Recent returns a copy of the retained event ring, oldest first.
func (b *EventBus) Recent() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.recent...)
}
