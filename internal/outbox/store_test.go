package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Enqueue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO outbox").
		WithArgs("evt-1", "order.confirmation", "u1", "corr-1", []byte(`{"order_id":"ORD1"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewStore(mock).Enqueue(context.Background(), Message{
		EventID:       "evt-1",
		Kind:          "order.confirmation",
		PartitionKey:  "u1",
		CorrelationID: "corr-1",
		Payload:       map[string]string{"order_id": "ORD1"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnqueueGeneratesEventID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), "order.confirmation", "", "", []byte(`null`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewStore(mock).Enqueue(context.Background(), Message{Kind: "order.confirmation"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnqueueRequiresKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Error(t, NewStore(mock).Enqueue(context.Background(), Message{}))
}

func TestStore_ClaimSortsByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "event_id", "kind", "partition_key", "correlation_id", "payload", "attempts", "created_at"}
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(10, 30.0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(9), "e9", "k", "u1", "", []byte(`{}`), 1, created).
			AddRow(int64(4), "e4", "k", "u1", "c", []byte(`{"a":1}`), 0, created))

	recs, err := NewStore(mock).Claim(context.Background(), 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(4), recs[0].ID)
	assert.Equal(t, json.RawMessage(`{"a":1}`), recs[0].Payload)
	assert.Equal(t, 1, recs[1].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Bookkeeping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	next := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE outbox SET sent_at").WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE outbox SET attempts = \\$2, last_error = \\$3, next_attempt_at").
		WithArgs(int64(2), 3, "boom", next).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("failed_at = now\\(\\)").
		WithArgs(int64(3), 8, "boom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewStore(mock)
	ctx := context.Background()
	require.NoError(t, s.MarkSent(ctx, 1))
	require.NoError(t, s.Retry(ctx, 2, 3, "boom", next))
	require.NoError(t, s.Park(ctx, 3, 8, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
