package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"vestry/internal/platform/config"
	"vestry/internal/platform/postgres"
	"vestry/pkg/platform/audit/consumer"
	"vestry/pkg/platform/audit/kafka"
	"vestry/pkg/platform/audit/publisher"
	auditmemory "vestry/pkg/platform/audit/store/memory"
	auditpostgres "vestry/pkg/platform/audit/store/postgres"
	"vestry/pkg/platform/audit/worker"
)

// openDatabase connects and migrates when a database URL is configured.
// Nil with no error means "run on the in-memory stores".
func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// auditPipeline bundles the publisher handed to services with the broker
// attachments that need closing on shutdown.
type auditPipeline struct {
	Publisher *publisher.Publisher

	sink         *kafka.Sink
	materializer *consumer.Materializer
}

// Close tears down the broker attachments. The caller closes the publisher
// and cancels the worker context first.
func (p *auditPipeline) Close() {
	if p.materializer != nil {
		p.materializer.Close()
	}
	if p.sink != nil {
		p.sink.Close()
	}
}

// buildAuditPipeline assembles the audit trail for the configured backends.
//
//   - postgres + kafka: services append to the outbox inside their own
//     transactions, the relay forwards rows to the broker, and the
//     materializer consumes them back into the queryable audit_events table.
//   - postgres only: the relay materializes outbox rows locally.
//   - kafka only: events are produced directly, buffered off the request path.
//   - neither: events stay in process memory, enough for local development.
func buildAuditPipeline(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) (*auditPipeline, error) {
	pipeline := &auditPipeline{}
	pubMetrics := publisher.NewMetrics()

	switch {
	case db != nil:
		outbox := auditpostgres.New(db)
		pipeline.Publisher = publisher.NewPublisher(outbox, publisher.WithMetrics(pubMetrics))

		sink := outbox.Materializer()
		if len(cfg.KafkaBrokers) > 0 {
			kafkaSink, err := kafka.NewSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
			if err != nil {
				return nil, fmt.Errorf("kafka sink: %w", err)
			}
			pipeline.sink = kafkaSink
			sink = kafkaSink

			materializer, err := consumer.NewMaterializer(cfg.KafkaBrokers, cfg.AuditTopic, "vestry-audit", outbox, log)
			if err != nil {
				kafkaSink.Close()
				return nil, fmt.Errorf("kafka consumer: %w", err)
			}
			pipeline.materializer = materializer
			go func() {
				if err := materializer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit materializer stopped", "error", err)
				}
			}()
		}

		relay := worker.NewOutboxRelay(db, sink, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()

	case len(cfg.KafkaBrokers) > 0:
		kafkaSink, err := kafka.NewSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		pipeline.sink = kafkaSink
		pipeline.Publisher = publisher.NewPublisher(kafkaSink,
			publisher.WithAsyncBuffer(256),
			publisher.WithMetrics(pubMetrics),
		)

	default:
		pipeline.Publisher = publisher.NewPublisher(auditmemory.NewInMemoryStore(),
			publisher.WithMetrics(pubMetrics))
	}

	return pipeline, nil
}
