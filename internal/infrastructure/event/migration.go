package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EventMigrator batch-upgrades stored event payloads to the current schema
// version. It runs offline against the outbox table (or any other payload
// store) after a deploy that introduced new upgraders, so the processor
// does not pay the upgrade cost on every poll.
type EventMigrator struct {
	serializer *VersionedSerializer
	logger     *zap.Logger
}

// NewEventMigrator creates a migrator backed by the given serializer's
// registered upgrader chains.
func NewEventMigrator(serializer *VersionedSerializer, logger *zap.Logger) *EventMigrator {
	return &EventMigrator{serializer: serializer, logger: logger}
}

// MigrationResult summarizes one batch migration run.
type MigrationResult struct {
	EventType      string
	TotalProcessed int
	Upgraded       int
	AlreadyCurrent int
	Failed         int
	Failures       []MigrationFailure
	StartedAt      time.Time
	CompletedAt    time.Time
}

// MigrationFailure records a payload that could not be upgraded.
type MigrationFailure struct {
	Payload []byte
	Version int
	Error   string
}

// Duration returns how long the run took.
func (r *MigrationResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// MigratePayload upgrades a single payload to the current schema version.
// Payloads already at the current version are returned unchanged.
func (m *EventMigrator) MigratePayload(eventType string, payload []byte) ([]byte, int, error) {
	return m.serializer.UpgradePayload(eventType, payload)
}

// MigratePayloads upgrades a batch of payloads of one event type. Failed
// payloads are collected in the result rather than aborting the batch;
// a cancelled context stops the run and returns the partial result.
func (m *EventMigrator) MigratePayloads(ctx context.Context, eventType string, payloads [][]byte) (*MigrationResult, error) {
	current, ok := m.serializer.CurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	result := &MigrationResult{
		EventType: eventType,
		StartedAt: time.Now(),
	}

	for _, payload := range payloads {
		if err := ctx.Err(); err != nil {
			result.CompletedAt = time.Now()
			return result, err
		}

		result.TotalProcessed++
		version := ExtractVersion(payload)
		if version >= current {
			result.AlreadyCurrent++
			continue
		}

		if _, _, err := m.serializer.UpgradePayload(eventType, payload); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, MigrationFailure{
				Payload: payload,
				Version: version,
				Error:   err.Error(),
			})
			continue
		}
		result.Upgraded++
	}

	result.CompletedAt = time.Now()
	if m.logger != nil {
		m.logger.Info("Event payload migration finished",
			zap.String("event_type", eventType),
			zap.Int("processed", result.TotalProcessed),
			zap.Int("upgraded", result.Upgraded),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", result.Duration()),
		)
	}
	return result, nil
}

// VersionAnalysis describes the schema version distribution of a payload set.
type VersionAnalysis struct {
	EventType      string
	CurrentVersion int
	VersionCounts  map[int]int
	TotalEvents    int
	NeedsMigration int
}

// AnalyzePayloads counts payloads per schema version without upgrading
// anything. Useful as a dry run before MigratePayloads.
func (m *EventMigrator) AnalyzePayloads(eventType string, payloads [][]byte) (*VersionAnalysis, error) {
	current, ok := m.serializer.CurrentVersion(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	analysis := &VersionAnalysis{
		EventType:      eventType,
		CurrentVersion: current,
		VersionCounts:  make(map[int]int),
		TotalEvents:    len(payloads),
	}
	for _, payload := range payloads {
		version := ExtractVersion(payload)
		analysis.VersionCounts[version]++
		if version < current {
			analysis.NeedsMigration++
		}
	}
	return analysis, nil
}
