package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/taic/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// versionedEvent is the registration record for one event type: the
// current schema version, the Go type payloads decode into, and the
// upgrader for each older version keyed by its source version.
type versionedEvent struct {
	currentVersion int
	goType         reflect.Type
	upgraders      map[int]EventUpgrader
}

// VersionedSerializer round-trips domain events through JSON like
// EventSerializer, but tolerates payloads written by older builds: on
// Deserialize it reads the payload's schema_version and runs the
// registered upgrader chain before decoding. Outbox entries therefore
// survive schema changes without a stop-the-world rewrite.
type VersionedSerializer struct {
	mu     sync.RWMutex
	events map[string]*versionedEvent
	logger *zap.Logger
}

// NewVersionedSerializer creates an empty versioned serializer.
func NewVersionedSerializer(logger *zap.Logger) *VersionedSerializer {
	return &VersionedSerializer{
		events: make(map[string]*versionedEvent),
		logger: logger,
	}
}

// Register registers an event type at schema version 1 with no upgraders.
// Most event types start and stay here.
func (s *VersionedSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[eventType] = &versionedEvent{
		currentVersion: 1,
		goType:         eventGoType(eventInstance),
		upgraders:      map[int]EventUpgrader{},
	}
}

// RegisterVersioned registers an event type whose schema has evolved.
// current is an instance of the latest struct; upgraders must form an
// unbroken sequential chain from version 1 up to currentVersion.
func (s *VersionedSerializer) RegisterVersioned(
	eventType string,
	currentVersion int,
	current shared.DomainEvent,
	upgraders ...EventUpgrader,
) error {
	chain := make(map[int]EventUpgrader, len(upgraders))
	for _, u := range upgraders {
		if u.TargetVersion() != u.SourceVersion()+1 {
			return fmt.Errorf("%s: upgrader must be sequential, got v%d -> v%d",
				eventType, u.SourceVersion(), u.TargetVersion())
		}
		chain[u.SourceVersion()] = u
	}
	for v := 1; v < currentVersion; v++ {
		if _, ok := chain[v]; !ok {
			return fmt.Errorf("%s: missing upgrader for v%d -> v%d", eventType, v, v+1)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[eventType] = &versionedEvent{
		currentVersion: currentVersion,
		goType:         eventGoType(current),
		upgraders:      chain,
	}
	return nil
}

// Serialize encodes the event payload as JSON. BaseDomainEvent carries
// the schema_version field, so the version travels with the payload.
func (s *VersionedSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes a payload into the current struct for eventType,
// upgrading it through the registered chain first when it was written
// at an older schema version.
func (s *VersionedSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	reg, ok := s.events[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	payload, _, err := s.upgrade(eventType, reg, data)
	if err != nil {
		return nil, err
	}
	return decodeEvent(reg.goType, eventType, payload)
}

// UpgradePayload upgrades a raw payload to the current schema version
// without decoding it to a struct. Returns the payload unchanged when it
// is already current. Used for batch migration of stored events.
func (s *VersionedSerializer) UpgradePayload(eventType string, data []byte) ([]byte, int, error) {
	s.mu.RLock()
	reg, ok := s.events[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("unknown event type: %s", eventType)
	}
	return s.upgrade(eventType, reg, data)
}

func (s *VersionedSerializer) upgrade(eventType string, reg *versionedEvent, data []byte) ([]byte, int, error) {
	from := ExtractVersion(data)
	if from >= reg.currentVersion {
		return data, reg.currentVersion, nil
	}

	if s.logger != nil {
		s.logger.Debug("Upgrading event payload",
			zap.String("event_type", eventType),
			zap.Int("from_version", from),
			zap.Int("to_version", reg.currentVersion),
		)
	}

	payload := data
	for v := from; v < reg.currentVersion; v++ {
		upgrader, ok := reg.upgraders[v]
		if !ok {
			return nil, 0, fmt.Errorf("%s: missing upgrader for v%d -> v%d", eventType, v, v+1)
		}
		var err error
		if payload, err = upgrader.Upgrade(payload); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", eventType, err)
		}
	}
	return payload, reg.currentVersion, nil
}

// CurrentVersion returns the registered schema version for an event type.
func (s *VersionedSerializer) CurrentVersion(eventType string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.events[eventType]
	if !ok {
		return 0, false
	}
	return reg.currentVersion, true
}

// IsRegistered reports whether the event type can be deserialized.
func (s *VersionedSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventType]
	return ok
}

// RegisteredTypes returns the registered event type names, sorted.
func (s *VersionedSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.events))
	for name := range s.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
