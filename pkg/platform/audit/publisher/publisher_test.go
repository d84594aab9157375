package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/audit/store/memory"
	"vestry/pkg/requestcontext"
)

const testSubject = "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingStore holds Append until released, so tests can pin the async
// worker and observe buffer behavior deterministically.
type blockingStore struct {
	release chan struct{}
	inner   *memory.InMemoryStore
}

func newBlockingStore() *blockingStore {
	return &blockingStore{release: make(chan struct{}), inner: memory.NewInMemoryStore()}
}

func (s *blockingStore) Append(ctx context.Context, event audit.Event) error {
	<-s.release
	return s.inner.Append(ctx, event)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		Subject: testSubject,
		Action:  audit.ActionContributorRegistered,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionContributorRegistered, events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	event := audit.Event{
		Subject: testSubject,
		Action:  audit.ActionClaimPaid,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := store.ListBySubject(context.Background(), testSubject)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond, "async event should reach the store")

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionClaimPaid, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		event := audit.Event{
			Subject: testSubject,
			Action:  audit.ActionContributorRegistered,
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all buffered events.
	pub.Close()

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := newBlockingStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	// First event occupies the worker, second fills the buffer.
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid}))
	require.Eventually(t, func() bool {
		return pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid}) == nil
	}, time.Second, time.Millisecond, "buffer slot should fill once the worker picks up the first event")

	err := pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid})
	assert.ErrorIs(t, err, ErrBufferFull)

	close(store.release)
	pub.Close()

	events, err := store.inner.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(events), 2, "accepted events must survive the drop")
}

func TestPublisher_ContextCancellation(t *testing.T) {
	store := newBlockingStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid}))
	require.Eventually(t, func() bool {
		return pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid}) == nil
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Subject: testSubject, Action: audit.ActionClaimPaid})
	assert.ErrorIs(t, err, context.Canceled)

	close(store.release)
	pub.Close()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		Subject: testSubject,
		Action:  audit.ActionContributorRegistered,
		// Timestamp not set
	}

	before := time.Now()
	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)
	after := time.Now()

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	event := audit.Event{
		Subject:   testSubject,
		Action:    audit.ActionContributorRegistered,
		Timestamp: customTime,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "curl/8.5")
	ctx = requestcontext.WithDevice(ctx, "curl/linux")

	err := pub.Emit(ctx, audit.Event{
		Subject: testSubject,
		Action:  audit.ActionReputationUpdated,
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, audit.CategoryCompliance, got.Category)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, "203.0.113.9", got.ClientIP)
	assert.Equal(t, "curl/linux", got.Device)
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actions := []audit.Action{
		audit.ActionRegistryInitialized,
		audit.ActionContributorRegistered,
		audit.ActionReputationUpdated,
	}
	for _, action := range actions {
		err := pub.Emit(context.Background(), audit.Event{Subject: testSubject, Action: action})
		require.NoError(t, err)
	}

	events, err := store.ListBySubject(context.Background(), testSubject)
	require.NoError(t, err)
	require.Len(t, events, 3)

	for i, action := range actions {
		assert.Equal(t, action, events[i].Action)
	}
}
