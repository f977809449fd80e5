package postgres

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/dwikikusuma/minishop/internal/cart/domain"
	"github.com/dwikikusuma/minishop/pkg/outbox"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Events writes checkout events to the outbox table in the caller's transaction.
type Events struct {
	db    outbox.Execer
	topic string
}

func NewEvents(db outbox.Execer, topic string) *Events {
	return &Events{db: db, topic: topic}
}

func (e *Events) CheckedOut(ctx context.Context, r domain.Receipt) error {
	payload, err := json.Marshal(domain.NewCheckedOutEvent(r))
	if err != nil {
		return err
	}
	if err := outbox.Insert(ctx, e.db, r.ID, e.topic, r.UserID, payload); err != nil {
		return domain.Unavailable("record checkout", err)
	}
	return nil
}
