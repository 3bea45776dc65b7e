package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autonoos/intake-gateway/internal/domain/provider"
	"github.com/autonoos/intake-gateway/internal/infrastructure/kafkax"
)

// EventSink writes provider domain events to the outbox. Provider records
// live only in the upstream systems, so these entries get their own
// transaction rather than riding on a domain write.
type EventSink struct {
	pool *pgxpool.Pool
}

// NewEventSink creates an outbox-backed event sink.
func NewEventSink(pool *pgxpool.Pool) *EventSink {
	return &EventSink{pool: pool}
}

// ProviderSignedUp enqueues a provider signup event.
func (s *EventSink) ProviderSignedUp(ctx context.Context, ev provider.SignedUpEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return Enqueue(ctx, s.pool, &OutboxEntry{
		AggregateID:   ev.ProviderID,
		AggregateType: "Provider",
		EventType:     "ProviderSignedUp",
		Payload:       payload,
		KafkaTopic:    kafkax.TopicProviderSignups,
		KafkaKey:      ev.ProviderID,
	})
}
