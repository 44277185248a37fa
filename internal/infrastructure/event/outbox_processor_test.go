package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/infrastructure/cache"
)

// fakeOutboxRepo keeps entries in memory. It hands out copies so the
// processor goroutine never shares entry pointers with the test.
type fakeOutboxRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
}

var _ shared.OutboxRepository = (*fakeOutboxRepo)(nil)

func newFakeOutboxRepo(entries ...*shared.OutboxEntry) *fakeOutboxRepo {
	repo := &fakeOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
	for _, e := range entries {
		repo.entries[e.ID] = clone(e)
	}
	return repo
}

func clone(e *shared.OutboxEntry) *shared.OutboxEntry {
	c := *e
	return &c
}

func (f *fakeOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.ID] = clone(e)
	}
	return nil
}

func (f *fakeOutboxRepo) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return f.findByStatus(shared.OutboxStatusPending, limit), nil
}

func (f *fakeOutboxRepo) FindRetryable(_ context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []*shared.OutboxEntry
	for _, e := range f.entries {
		if len(found) == limit {
			break
		}
		if e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(before) {
			found = append(found, clone(e))
		}
	}
	return found, nil
}

func (f *fakeOutboxRepo) FindDead(_ context.Context, _, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	dead := f.findByStatus(shared.OutboxStatusDead, pageSize)
	return dead, int64(len(dead)), nil
}

func (f *fakeOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return clone(e), nil
}

func (f *fakeOutboxRepo) MarkProcessing(_ context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []*shared.OutboxEntry
	for _, id := range ids {
		e, ok := f.entries[id]
		if !ok {
			continue
		}
		if e.Status != shared.OutboxStatusPending && e.Status != shared.OutboxStatusFailed {
			continue
		}
		e.Status = shared.OutboxStatusProcessing
		claimed = append(claimed, clone(e))
	}
	return claimed, nil
}

func (f *fakeOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = clone(entry)
	return nil
}

func (f *fakeOutboxRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, e := range f.entries {
		if e.Status == shared.OutboxStatusSent && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(f.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeOutboxRepo) CountByStatus(_ context.Context) (map[shared.OutboxStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range f.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (f *fakeOutboxRepo) findByStatus(status shared.OutboxStatus, limit int) []*shared.OutboxEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []*shared.OutboxEntry
	for _, e := range f.entries {
		if len(found) == limit {
			break
		}
		if e.Status == status {
			found = append(found, clone(e))
		}
	}
	return found
}

// get returns the stored state of one entry for assertions.
func (f *fakeOutboxRepo) get(t *testing.T, id uuid.UUID) *shared.OutboxEntry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil
	}
	return clone(e)
}

func (f *fakeOutboxRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func testProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
	}
}

func startProcessor(t *testing.T, repo shared.OutboxRepository, bus shared.EventBus, serializer Serializer, config OutboxProcessorConfig) {
	t.Helper()
	processor := NewOutboxProcessor(repo, bus, serializer, config, zaptest.NewLogger(t))
	require.NoError(t, processor.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, processor.Stop(stopCtx))
	})
}

func TestOutboxProcessorDeliversPending(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("StockCounted", &stockCountedTestEvent{})

	evt := newStockCountedTestEvent("TAIC-100", 12)
	payload, err := serializer.Serialize(evt)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(evt, payload)
	repo := newFakeOutboxRepo(entry)

	received := make(chan shared.DomainEvent, 1)
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	bus.Subscribe(&funcHandler{
		types: []string{"StockCounted"},
		handle: func(_ context.Context, evt shared.DomainEvent) error {
			received <- evt
			return nil
		},
	})

	startProcessor(t, repo, bus, serializer, testProcessorConfig())

	select {
	case got := <-received:
		counted, ok := got.(*stockCountedTestEvent)
		require.True(t, ok)
		assert.Equal(t, "TAIC-100", counted.SKU)
		assert.Equal(t, evt.EventID(), counted.EventID())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	require.Eventually(t, func() bool {
		return repo.get(t, entry.ID).Status == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	stored := repo.get(t, entry.ID)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestOutboxProcessorRedeliversFailedEntry(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("StockCounted", &stockCountedTestEvent{})

	evt := newStockCountedTestEvent("TAIC-200", 4)
	payload, err := serializer.Serialize(evt)
	require.NoError(t, err)

	retryAt := time.Now().Add(-time.Minute)
	entry := shared.NewOutboxEntry(evt, payload)
	entry.Status = shared.OutboxStatusFailed
	entry.RetryCount = 2
	entry.NextRetryAt = &retryAt
	repo := newFakeOutboxRepo(entry)

	startProcessor(t, repo, NewInMemoryEventBus(zaptest.NewLogger(t)), serializer, testProcessorConfig())

	require.Eventually(t, func() bool {
		return repo.get(t, entry.ID).Status == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOutboxProcessorRetriesAfterHandlerFailure(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("StockCounted", &stockCountedTestEvent{})

	evt := newStockCountedTestEvent("TAIC-300", 7)
	payload, err := serializer.Serialize(evt)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(evt, payload)
	repo := newFakeOutboxRepo(entry)

	// The handler fails exactly once, like an optimistic-lock conflict.
	failures := make(chan error, 1)
	failures <- errors.New("stock reservation conflict")
	var calls atomic.Int32
	inner := &funcHandler{
		types: []string{"StockCounted"},
		handle: func(context.Context, shared.DomainEvent) error {
			calls.Add(1)
			select {
			case failure := <-failures:
				return failure
			default:
				return nil
			}
		},
	}

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	bus.Subscribe(NewIdempotentHandler(inner, store, zaptest.NewLogger(t)))

	startProcessor(t, repo, bus, serializer, testProcessorConfig())

	// The failed delivery must schedule a retry, never count as sent.
	require.Eventually(t, func() bool {
		return repo.get(t, entry.ID).Status == shared.OutboxStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	stored := repo.get(t, entry.ID)
	assert.Contains(t, stored.LastError, "stock reservation conflict")
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.NextRetryAt)

	// Bring the retry due now rather than waiting out the backoff.
	due := time.Now().Add(-time.Second)
	stored.NextRetryAt = &due
	require.NoError(t, repo.Update(context.Background(), stored))

	require.Eventually(t, func() bool {
		return repo.get(t, entry.ID).Status == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(2), calls.Load(),
		"redelivery must reach the handler instead of being suppressed as a duplicate")
}

func TestOutboxProcessorDeadLettersUndecodableEntry(t *testing.T) {
	// Nothing registers ForgottenEvent, so every delivery attempt fails
	// at deserialization until the entry runs out of retries.
	serializer := NewEventSerializer()

	entry := shared.NewOutboxEntry(busTestEvent("ForgottenEvent"), []byte(`{}`))
	entry.MaxRetries = 1
	repo := newFakeOutboxRepo(entry)

	startProcessor(t, repo, NewInMemoryEventBus(zaptest.NewLogger(t)), serializer, testProcessorConfig())

	require.Eventually(t, func() bool {
		return repo.get(t, entry.ID).Status == shared.OutboxStatusDead
	}, 2*time.Second, 10*time.Millisecond)

	stored := repo.get(t, entry.ID)
	assert.Contains(t, stored.LastError, "unknown event type")
	assert.Equal(t, 1, stored.RetryCount)
}

func TestOutboxProcessorCleanup(t *testing.T) {
	processedAt := time.Now().Add(-48 * time.Hour)
	entry := shared.NewOutboxEntry(busTestEvent("OrderCreated"), []byte(`{}`))
	entry.Status = shared.OutboxStatusSent
	entry.ProcessedAt = &processedAt
	repo := newFakeOutboxRepo(entry)

	config := testProcessorConfig()
	config.CleanupEnabled = true
	config.CleanupRetention = 24 * time.Hour
	config.CleanupInterval = 10 * time.Millisecond

	startProcessor(t, repo, NewInMemoryEventBus(zaptest.NewLogger(t)), NewEventSerializer(), config)

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOutboxProcessorStopBeforeStart(t *testing.T) {
	processor := NewOutboxProcessor(
		newFakeOutboxRepo(),
		NewInMemoryEventBus(zaptest.NewLogger(t)),
		NewEventSerializer(),
		testProcessorConfig(),
		zaptest.NewLogger(t),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(ctx))
}

func TestDefaultOutboxProcessorConfig(t *testing.T) {
	config := DefaultOutboxProcessorConfig()
	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.True(t, config.CleanupEnabled)
	assert.Equal(t, 7*24*time.Hour, config.CleanupRetention)
	assert.Equal(t, time.Hour, config.CleanupInterval)
}
