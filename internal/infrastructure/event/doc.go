// Package event implements reliable domain event delivery for the
// marketplace backend.
//
// Repositories write events to the outbox_events table on the same
// transaction as the aggregate change, via OutboxPublisher. The
// InMemoryEventBus delivers events to subscribed handlers synchronously
// at publish time, while OutboxProcessor polls the outbox and
// re-delivers anything a crash or handler failure left behind.
// IdempotentHandler collapses the resulting duplicate deliveries, so
// handlers see each event effectively once.
//
// Payloads are JSON with an embedded schema_version field.
// VersionedSerializer upgrades old payloads to the current schema on
// read, using the upgrade steps registered in RegisterAllEvents, and
// EventMigrator batch-upgrades stored payloads through the migrate
// tool's events command.
package event
