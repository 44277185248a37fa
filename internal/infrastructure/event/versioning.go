package event

import (
	"encoding/json"
	"fmt"
)

// EventUpgrader rewrites a stored event payload from one schema version to
// the next. Upgraders are chained by the serializer, so each one only has
// to know about a single transition.
type EventUpgrader interface {
	// SourceVersion is the schema version this upgrader accepts.
	SourceVersion() int
	// TargetVersion is the schema version this upgrader produces.
	// Must equal SourceVersion()+1.
	TargetVersion() int
	// Upgrade transforms the raw JSON payload.
	Upgrade(payload []byte) ([]byte, error)
}

// UpgradeFunc mutates the decoded payload fields during an upgrade step.
// The schema_version field is managed by the step itself and must not be
// set here.
type UpgradeFunc func(fields map[string]any) (map[string]any, error)

// UpgradeStep builds an upgrader for the from -> from+1 transition. The
// payload is decoded to a field map, passed through apply, stamped with the
// new schema version and re-encoded.
func UpgradeStep(from int, apply UpgradeFunc) EventUpgrader {
	return &stepUpgrader{from: from, apply: apply}
}

type stepUpgrader struct {
	from  int
	apply UpgradeFunc
}

func (s *stepUpgrader) SourceVersion() int { return s.from }
func (s *stepUpgrader) TargetVersion() int { return s.from + 1 }

func (s *stepUpgrader) Upgrade(payload []byte) ([]byte, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode v%d payload: %w", s.from, err)
	}

	upgraded, err := s.apply(fields)
	if err != nil {
		return nil, fmt.Errorf("upgrade v%d -> v%d: %w", s.from, s.from+1, err)
	}

	upgraded["schema_version"] = s.from + 1
	return json.Marshal(upgraded)
}

// AddField returns a step that introduces a field with a default value,
// for schema changes that added a field older payloads lack.
func AddField(from int, name string, defaultValue any) EventUpgrader {
	return UpgradeStep(from, func(fields map[string]any) (map[string]any, error) {
		fields[name] = defaultValue
		return fields, nil
	})
}

// RemoveField returns a step that drops a field from older payloads.
func RemoveField(from int, name string) EventUpgrader {
	return UpgradeStep(from, func(fields map[string]any) (map[string]any, error) {
		delete(fields, name)
		return fields, nil
	})
}

// RenameField returns a step that moves a field to a new key. Payloads
// without the old key pass through unchanged.
func RenameField(from int, oldName, newName string) EventUpgrader {
	return UpgradeStep(from, func(fields map[string]any) (map[string]any, error) {
		if v, ok := fields[oldName]; ok {
			fields[newName] = v
			delete(fields, oldName)
		}
		return fields, nil
	})
}

// TransformField returns a step that rewrites a field's value in place.
// The convert function sees JSON-decoded values (float64, string, bool,
// map[string]any, []any).
func TransformField(from int, name string, convert func(any) (any, error)) EventUpgrader {
	return UpgradeStep(from, func(fields map[string]any) (map[string]any, error) {
		v, ok := fields[name]
		if !ok {
			return fields, nil
		}
		converted, err := convert(v)
		if err != nil {
			return nil, fmt.Errorf("convert field %s: %w", name, err)
		}
		fields[name] = converted
		return fields, nil
	})
}

// ExtractVersion reads the schema_version field from a raw payload.
// Payloads written before versioning existed carry no field and count
// as version 1, as do payloads that fail to parse.
func ExtractVersion(payload []byte) int {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.SchemaVersion == 0 {
		return 1
	}
	return probe.SchemaVersion
}
