package cart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	tests := map[string]struct {
		raw     string
		want    []Line
		wantErr bool
	}{
		"empty string": {raw: ""},
		"json null":    {raw: "null"},
		"empty array":  {raw: "[]", want: []Line{}},
		"valid lines": {
			raw: `[{"product_id":"P1","quantity":2,"price":100,"name":"Lamp","image":"lamp.png"}]`,
			want: []Line{
				{ProductID: "P1", Quantity: 2, Price: 100, Name: "Lamp", Image: "lamp.png"},
			},
		},
		"drops malformed entries": {
			raw: `[{"product_id":"","quantity":1},{"product_id":"P2","quantity":0},{"product_id":"P3","quantity":1,"price":5}]`,
			want: []Line{
				{ProductID: "P3", Quantity: 1, Price: 5},
			},
		},
		"numeric strings": {
			raw: `[{"product_id":"P1","quantity":"2","price":"100.00"},{"product_id":"P2","quantity":1,"price":" 4.5 "}]`,
			want: []Line{
				{ProductID: "P1", Quantity: 2, Price: 100},
				{ProductID: "P2", Quantity: 1, Price: 4.5},
			},
		},
		"fractional quantity": {raw: `[{"product_id":"P1","quantity":1.5,"price":1}]`, wantErr: true},
		"not json":            {raw: "{oops", wantErr: true},
		"wrong shape":         {raw: `{"product_id":"P1"}`, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLines(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLines(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT cart FROM users WHERE user_id=\$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"cart"}).AddRow(`[{"product_id":"P1","quantity":2,"price":100}]`))

	repo := NewPostgresRepository(mock, log.New(io.Discard, "", 0))
	lines, err := repo.Lines(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 2, Price: 100}}, lines)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLines_MalformedPayloadIsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT cart FROM users`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"cart"}).AddRow(`not-json`))

	var buf bytes.Buffer
	repo := NewPostgresRepository(mock, log.New(&buf, "", 0))
	lines, err := repo.Lines(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Contains(t, buf.String(), "user=u1")
}

func TestLines_UnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT cart FROM users`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock, log.New(io.Discard, "", 0))
	_, err = repo.Lines(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLines_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT cart FROM users`).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	repo := NewPostgresRepository(mock, log.New(io.Discard, "", 0))
	_, err = repo.Lines(context.Background(), "u1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUserNotFound)
}

func TestClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE users SET cart='\[\]'`).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET cart='\[\]'`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock, log.New(io.Discard, "", 0))
	require.NoError(t, repo.Clear(context.Background(), "u1"))
	require.ErrorIs(t, repo.Clear(context.Background(), "ghost"), ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockLines(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT cart FROM users WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"cart"}).AddRow(`[{"product_id":"P1","quantity":"2","price":"100.00"}]`))
	mock.ExpectQuery(`SELECT cart FROM users WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock, log.New(io.Discard, "", 0))
	lines, err := repo.LockLines(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "P1", Quantity: 2, Price: 100}}, lines)

	_, err = repo.LockLines(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
