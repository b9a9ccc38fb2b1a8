package orderid

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		id     string
		want   int64
		wantOK bool
	}{
		"plain":          {id: "ORD42", want: 42, wantOK: true},
		"leading zeros":  {id: "ORD007", want: 7, wantOK: true},
		"no digits":      {id: "ORD", wantOK: false},
		"lower case":     {id: "ord5", wantOK: false},
		"suffix letters": {id: "ORD12a", wantOK: false},
		"negative":       {id: "ORD-3", wantOK: false},
		"uuid style":     {id: "20250908130500-4b1c", wantOK: false},
		"overflow":       {id: "ORD99999999999999999999", wantOK: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := Parse(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMaxSuffixIgnoresMalformed(t *testing.T) {
	ids := []string{"ORD3", "ORD10", "ORDX99", "legacy-500", "ORD9"}
	assert.Equal(t, int64(10), MaxSuffix(ids))
	assert.Equal(t, int64(0), MaxSuffix(nil))
}

func TestRange(t *testing.T) {
	assert.Equal(t, []string{"ORD8", "ORD9", "ORD10"}, Range(7, 3))
	assert.Empty(t, Range(7, 0))
}

type lockedCounter struct {
	mu   sync.Mutex
	last int64
	err  error
}

func (c *lockedCounter) Advance(ctx context.Context, name string, n int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.last += int64(n)
	return c.last, nil
}

func TestAllocator_Allocate(t *testing.T) {
	a := NewAllocator(&lockedCounter{last: 41})

	ids, err := a.Allocate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD42", "ORD43"}, ids)

	ids, err = a.Allocate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD44"}, ids)

	_, err = a.Allocate(context.Background(), 0)
	require.Error(t, err)
}

func TestAllocator_CounterError(t *testing.T) {
	a := NewAllocator(&lockedCounter{err: errors.New("db down")})
	_, err := a.Allocate(context.Background(), 1)
	require.Error(t, err)
}

func TestAllocator_ConcurrentCallersNeverCollide(t *testing.T) {
	a := NewAllocator(&lockedCounter{})

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	results := make(chan []string, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids, err := a.Allocate(context.Background(), 1+i%3)
				if err != nil {
					t.Errorf("allocate: %v", err)
					return
				}
				results <- ids
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for ids := range results {
		var prev int64
		for _, id := range ids {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
			n, ok := Parse(id)
			require.True(t, ok)
			require.Greater(t, n, prev, "ids within one allocation must increase")
			prev = n
		}
	}
}

type recordingRaiser struct {
	name  string
	floor int64
}

func (r *recordingRaiser) Raise(ctx context.Context, name string, floor int64) error {
	r.name, r.floor = name, floor
	return nil
}

func TestSync(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT order_id FROM orders`).
		WillReturnRows(pgxmock.NewRows([]string{"order_id"}).
			AddRow("ORD12").
			AddRow("ORD7").
			AddRow("ORD12-old"))

	raiser := &recordingRaiser{}
	highest, err := Sync(context.Background(), mock, raiser, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	assert.Equal(t, int64(12), highest)
	assert.Equal(t, CounterName, raiser.name)
	assert.Equal(t, int64(12), raiser.floor)
	require.NoError(t, mock.ExpectationsWereMet())
}
