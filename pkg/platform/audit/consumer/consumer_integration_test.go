//go:build integration

package consumer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/audit/consumer"
	"vestry/pkg/platform/audit/kafka"
	"vestry/pkg/platform/audit/store/postgres"
	"vestry/pkg/testutil/containers"
)

// TestMaterializerPipeline runs the full trail pipeline: events produced to
// the broker come back out of the materialized audit_events table, and
// redelivered duplicates collapse onto one row.
func TestMaterializerPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)
	redpanda := mgr.GetRedpanda(t)
	require.NoError(t, pg.TruncateTables(ctx, "audit_events"))

	suffix := uuid.NewString()[:8]
	topic := "vestry.audit.pipeline." + suffix

	sink, err := kafka.NewSink(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	store := postgres.New(pg.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	materializer, err := consumer.NewMaterializer(
		[]string{redpanda.Broker}, topic, "vestry-audit-test-"+suffix, store, logger)
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- materializer.Run(runCtx) }()

	subject := "GBENEFICIARY" + suffix
	claimed := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionClaimPaid,
		Actor:     subject,
		Subject:   subject,
		RequestID: "req-claim",
		ClientIP:  "10.0.0.1",
		Metadata:  map[string]string{"amount": "750"},
	}
	require.NoError(t, sink.Append(ctx, claimed))
	// The same event again, as a restarted relay would resend it.
	require.NoError(t, sink.Append(ctx, claimed))

	registered := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionContributorRegistered,
		Subject:   subject,
		RequestID: "req-register",
	}
	require.NoError(t, sink.Append(ctx, registered))

	require.Eventually(t, func() bool {
		events, err := store.ListBySubject(ctx, subject)
		return err == nil && len(events) == 2
	}, 30*time.Second, 100*time.Millisecond,
		"both distinct events must materialize exactly once")

	events, err := store.ListBySubject(ctx, subject)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// ListBySubject returns newest first.
	require.Equal(t, registered.ID, events[0].ID)
	require.Equal(t, claimed.ID, events[1].ID)
	require.Equal(t, audit.CategoryCompliance, events[1].Category)
	require.Equal(t, claimed.Metadata, events[1].Metadata)
	require.Equal(t, claimed.ClientIP, events[1].ClientIP)

	stop()
	select {
	case err := <-done:
		if err != nil {
			require.True(t, errors.Is(err, context.Canceled), "unexpected run error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("materializer did not stop after cancel")
	}
	materializer.Close()
}
