package events

import (
	"sync"

	"go.uber.org/zap"
)

type subscription struct {
	id      int
	types   map[string]bool
	handler Handler
}

// InMemoryEventStore keeps the audit trail of one process
type InMemoryEventStore struct {
	mutex         sync.RWMutex
	streams       map[string][]Event
	log           []Event
	subscriptions []subscription
	nextID        int
	logger        *zap.Logger
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams: make(map[string][]Event),
		logger:  logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// AppendEvent stores event at the end of streamID and notifies matching subscribers
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	record := Record{
		Kind:    event.Type(),
		Stream:  streamID,
		Payload: event.Data(),
		At:      event.Timestamp(),
		Seq:     len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], record)
	s.log = append(s.log, record)

	var handlers []Handler
	for _, sub := range s.subscriptions {
		if sub.types == nil || sub.types[record.Kind] {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mutex.Unlock()

	for _, h := range handlers {
		if err := h.Handle(record); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("type", record.Kind),
				zap.String("stream", record.Stream),
				zap.Error(err))
		}
	}
	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.log) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.log[fromPosition:]...), nil
}

// EventsOfType returns every stored event of the given type in append order
func (s *InMemoryEventStore) EventsOfType(eventType string) []Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []Event
	for _, e := range s.log {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe registers handler for the given event types; no types means every event.
// The returned function removes the subscription.
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler Handler) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	sub := subscription{id: s.nextID, handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = true
		}
	}
	s.subscriptions = append(s.subscriptions, sub)

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		for i, existing := range s.subscriptions {
			if existing.id == sub.id {
				s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
				return
			}
		}
	}
}
