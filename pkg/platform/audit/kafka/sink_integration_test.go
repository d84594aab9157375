//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/audit/kafka"
	"vestry/pkg/testutil/containers"
)

// TestSinkProducesKeyedRecords verifies the sink lands one record per event,
// keyed by subject, with a payload a plain JSON consumer can decode.
func TestSinkProducesKeyedRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "vestry.audit.sink." + uuid.NewString()[:8]

	sink, err := kafka.NewSink(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	now := time.Now().UTC()
	events := []audit.Event{
		{
			ID:        uuid.NewString(),
			Timestamp: now,
			Action:    audit.ActionScheduleCreated,
			Actor:     "GADMIN",
			Subject:   "GBENEFICIARY",
			RequestID: "req-1",
			Metadata:  map[string]string{"total_amount": "1000"},
		},
		{
			ID:        uuid.NewString(),
			Timestamp: now.Add(time.Second),
			Action:    audit.ActionClaimPaid,
			Actor:     "GBENEFICIARY",
			Subject:   "GBENEFICIARY",
			RequestID: "req-2",
			Metadata:  map[string]string{"amount": "250"},
		},
	}
	for _, event := range events {
		require.NoError(t, sink.Append(ctx, event))
	}

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer reader.Close()

	var records []*kgo.Record
	for len(records) < len(events) {
		fetches := reader.PollFetches(ctx)
		require.NoError(t, fetches.Err(), "poll must succeed before the deadline")
		records = append(records, fetches.Records()...)
	}
	require.Len(t, records, len(events))

	for i, record := range records {
		want := events[i]
		require.Equal(t, want.Subject, string(record.Key),
			"records must be keyed by subject for per-principal ordering")

		var got audit.Event
		require.NoError(t, json.Unmarshal(record.Value, &got))
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Action, got.Action)
		require.Equal(t, want.Actor, got.Actor)
		require.Equal(t, want.RequestID, got.RequestID)
		require.Equal(t, want.Metadata, got.Metadata)
		require.WithinDuration(t, want.Timestamp, got.Timestamp, time.Microsecond)
	}
}
