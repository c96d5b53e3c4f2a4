package pgstore

import (
	"context"

	"github.com/roulettehub/subgate/pkg/pg"
	"github.com/roulettehub/subgate/pkg/subscription"
)

const (
	hasProcessedQuery = `SELECT EXISTS (SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2)`

	markProcessedQuery = `
		INSERT INTO processed_events (provider, event_id, event_type, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5)`

	releaseQuery = `DELETE FROM processed_events WHERE provider = $1 AND event_id = $2`
)

func (s *Store) HasProcessed(ctx context.Context, provider subscription.ProviderName, eventID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, hasProcessedQuery, provider.String(), eventID).Scan(&exists); err != nil {
		return false, wrap("check processed event", err)
	}
	return exists, nil
}

func (s *Store) MarkProcessed(ctx context.Context, rec subscription.ProcessedEvent) error {
	var payload []byte
	if len(rec.Payload) > 0 {
		payload = rec.Payload
	}
	_, err := s.db.Exec(ctx, markProcessedQuery,
		rec.Provider.String(), rec.EventID, rec.EventType, payload, rec.ProcessedAt.UTC())
	if pg.IsDuplicateKeyError(err) {
		return subscription.ErrDuplicateEvent
	}
	if err != nil {
		return wrap("insert processed event", err)
	}
	return nil
}

func (s *Store) Release(ctx context.Context, provider subscription.ProviderName, eventID string) error {
	if _, err := s.db.Exec(ctx, releaseQuery, provider.String(), eventID); err != nil {
		return wrap("delete processed event", err)
	}
	return nil
}
