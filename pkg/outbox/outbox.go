package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dwikikusuma/minishop/pkg/postgres"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx so events can be
// written inside the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func Insert(ctx context.Context, db Execer, eventID, topic, key string, payload []byte) error {
	_, err := db.Exec(ctx,
		`INSERT INTO outbox(event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		eventID, topic, key, payload)
	return err
}

type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay moves pending outbox rows of one topic to a Publisher. Rows are locked with
// SKIP LOCKED so several relays can run side by side.
type Relay struct {
	pool  *pgxpool.Pool
	pub   Publisher
	topic string
	batch int
	log   *zap.Logger
}

func NewRelay(pool *pgxpool.Pool, pub Publisher, topic string, batch int, log *zap.Logger) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{pool: pool, pub: pub, topic: topic, batch: batch, log: log}
}

// RunOnce publishes up to one batch and returns how many rows were marked sent.
// Rows published before a publish failure are still marked sent and the failure is
// returned alongside the count.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	sent := 0
	var pubErr error
	err := postgres.ExecTx(ctx, r.pool, func(tx pgx.Tx) error {
		pending, err := fetchPending(ctx, tx, r.topic, r.batch)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(pending))
		for _, rec := range pending {
			if err := r.pub.Publish(ctx, rec.Key, rec.Payload); err != nil {
				pubErr = fmt.Errorf("publish outbox %d: %w", rec.ID, err)
				break
			}
			ids = append(ids, rec.ID)
		}

		if len(ids) > 0 {
			if _, err := tx.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = ANY($1)`, ids); err != nil {
				return err
			}
		}
		sent = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if pubErr != nil {
		r.log.Warn("outbox relay stopped early", zap.Int("sent", sent), zap.Error(pubErr))
	}
	return sent, pubErr
}

func fetchPending(ctx context.Context, tx pgx.Tx, topic string, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, topic, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL AND topic = $1
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, topic, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt)
		return rec, err
	})
}
