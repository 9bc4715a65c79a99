package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeSemesterFrozen   = "SemesterFrozen"
	TypeResultsPublished = "ResultsPublished"
	TypeResultsProcessed = "ResultsProcessed"
)

type Event struct {
	Type string
	Key  string // natural key: semesterID
	Data any    // JSON-encoded into event_log
}

// Handler runs inside the publisher's transaction. Returning an error aborts
// the publish, so the caller's ROLLBACK also undoes subscriber writes.
type Handler func(ctx context.Context, tx *sql.Tx, e Event) error

// Bus is a synchronous in-process dispatcher. Subscribers registered at boot;
// not safe for concurrent Subscribe after serving starts.
type Bus struct {
	db       *sql.DB
	handlers map[string][]Handler
}

func NewBus(db *sql.DB) *Bus {
	return &Bus{db: db, handlers: map[string][]Handler{}}
}

func (b *Bus) Subscribe(typ string, h Handler) {
	b.handlers[typ] = append(b.handlers[typ], h)
}

// Publish dispatches handlers in registration order inside tx, then appends
// the event to event_log in the same tx.
func (b *Bus) Publish(ctx context.Context, tx *sql.Tx, e Event) error {
	for _, h := range b.handlers[e.Type] {
		if err := h(ctx, tx, e); err != nil {
			return err
		}
	}
	buf, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ('local',$1,$2,$3,$4)`,
		e.Type, e.Key, string(buf), time.Now().Unix())
	return err
}
