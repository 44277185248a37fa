package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/taic/backend/internal/domain/shared"
)

// Serializer converts domain events to and from their stored payload form.
// EventSerializer is the plain implementation; VersionedSerializer adds
// schema upgrades on deserialization for payloads written by older builds.
type Serializer interface {
	Register(eventType string, eventInstance shared.DomainEvent)
	Serialize(event shared.DomainEvent) ([]byte, error)
	Deserialize(eventType string, data []byte) (shared.DomainEvent, error)
	IsRegistered(eventType string) bool
	RegisteredTypes() []string
}

// EventSerializer maps event type names to Go types and round-trips
// events through JSON. Deserialize only accepts registered types, so the
// outbox cannot materialize arbitrary structs.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

var (
	_ Serializer = (*EventSerializer)(nil)
	_ Serializer = (*VersionedSerializer)(nil)
)

// NewEventSerializer creates an empty serializer.
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: make(map[string]reflect.Type)}
}

// Register maps an event type name to the concrete type of the given
// instance. The name must match what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	t := eventGoType(eventInstance)

	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

// eventGoType unwraps pointers so registration accepts both &Event{} and
// Event{} and reflect.New always yields an addressable struct.
func eventGoType(eventInstance shared.DomainEvent) reflect.Type {
	t := reflect.TypeOf(eventInstance)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Serialize encodes the event payload as JSON.
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes a payload into a fresh instance of the registered
// type for eventType.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	return decodeEvent(t, eventType, data)
}

// decodeEvent unmarshals a payload into a fresh instance of t.
func decodeEvent(t reflect.Type, eventType string, payload []byte) (shared.DomainEvent, error) {
	instance := reflect.New(t).Interface()
	if err := json.Unmarshal(payload, instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}

	evt, ok := instance.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	return evt, nil
}

// IsRegistered reports whether the event type can be deserialized.
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes returns the registered event type names, sorted.
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
