package event_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusware/registrar/internal/db"
	"github.com/campusware/registrar/internal/event"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func TestPublishDispatchesAndLogs(t *testing.T) {
	dbh := openDB(t)
	bus := event.NewBus(dbh)
	ctx := context.Background()

	var got []string
	bus.Subscribe(event.TypeSemesterFrozen, func(ctx context.Context, tx *sql.Tx, e event.Event) error {
		got = append(got, "first:"+e.Key)
		return nil
	})
	bus.Subscribe(event.TypeSemesterFrozen, func(ctx context.Context, tx *sql.Tx, e event.Event) error {
		got = append(got, "second:"+e.Key)
		return nil
	})

	tx, err := dbh.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, tx, event.Event{
		Type: event.TypeSemesterFrozen,
		Key:  "sem1",
		Data: map[string]any{"semester_id": "sem1"},
	}))
	require.NoError(t, tx.Commit())

	require.Equal(t, []string{"first:sem1", "second:sem1"}, got)

	var typ, key, data string
	require.NoError(t, dbh.QueryRow(`SELECT typ, key, data FROM event_log`).Scan(&typ, &key, &data))
	require.Equal(t, event.TypeSemesterFrozen, typ)
	require.Equal(t, "sem1", key)
	require.Contains(t, data, "sem1")
}

// A failing subscriber aborts the publish; rolling back the tx discards the
// event_log append with it.
func TestSubscriberErrorAbortsPublish(t *testing.T) {
	dbh := openDB(t)
	bus := event.NewBus(dbh)
	ctx := context.Background()

	boom := errors.New("boom")
	bus.Subscribe(event.TypeResultsPublished, func(ctx context.Context, tx *sql.Tx, e event.Event) error {
		return boom
	})

	tx, err := dbh.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = bus.Publish(ctx, tx, event.Event{Type: event.TypeResultsPublished, Key: "sem1", Data: nil})
	require.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, dbh.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestPublishWithoutSubscribersStillLogs(t *testing.T) {
	dbh := openDB(t)
	bus := event.NewBus(dbh)
	ctx := context.Background()

	tx, err := dbh.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, tx, event.Event{Type: event.TypeResultsProcessed, Key: "sem9", Data: map[string]int{"students": 3}}))
	require.NoError(t, tx.Commit())

	var n int
	require.NoError(t, dbh.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&n))
	require.Equal(t, 1, n)
}
