package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/tmquery/libs/pubsub/query"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	rs, err := NewRecordStore(dbm.NewMemDB())
	require.NoError(t, err)
	return rs
}

func TestPutGetDelete(t *testing.T) {
	rs := newTestStore(t)

	id1, err := rs.Put([]byte(`{"name": "a"}`))
	require.NoError(t, err)
	id2, err := rs.Put([]byte(`{"name": "b"}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, id1)
	assert.EqualValues(t, 2, id2)

	bz, err := rs.Get(id2)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "b"}`, string(bz))

	require.NoError(t, rs.Delete(id1))
	_, err = rs.Get(id1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(rs.Delete(id1), ErrNotFound))

	n, err := rs.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = rs.Put([]byte(`{"name": `))
	assert.Error(t, err)
}

func TestReopenContinuesIDs(t *testing.T) {
	db := dbm.NewMemDB()
	rs, err := NewRecordStore(db)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := rs.Put([]byte(`{}`))
		require.NoError(t, err)
	}

	rs, err = NewRecordStore(db)
	require.NoError(t, err)
	id, err := rs.Put([]byte(`{}`))
	require.NoError(t, err)
	assert.EqualValues(t, 4, id)
}

func TestFilter(t *testing.T) {
	rs := newTestStore(t)
	docs := []string{
		`{"name": "Jane", "age": 34, "tags": {"team": "infra"}}`,
		`{"name": "John", "age": 17}`,
		`{"name": "Jim", "age": 52, "tags": {"team": "api"}}`,
		`{"name": "Ann", "age": 41}`,
	}
	for _, d := range docs {
		_, err := rs.Put([]byte(d))
		require.NoError(t, err)
	}

	tests := []struct {
		query string
		args  []interface{}
		want  []int64
	}{
		{`TRUEPREDICATE`, nil, []int64{1, 2, 3, 4}},
		{`name BEGINSWITH "J"`, nil, []int64{1, 2, 3}},
		{`name BEGINSWITH "J" AND age >= $0`, []interface{}{21}, []int64{1, 3}},
		{`tags.team == "api" OR age < 18`, nil, []int64{2, 3}},
		{`NOT (tags.team == nothing)`, nil, []int64{1, 3}},
		{`FALSEPREDICATE`, nil, nil},
	}
	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			recs, err := rs.Filter(context.Background(), query.MustParse(test.query), test.args...)
			require.NoError(t, err)
			var got []int64
			for _, r := range recs {
				got = append(got, r.ID)
			}
			assert.Equal(t, test.want, got)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	rs := newTestStore(t)
	_, err := rs.Put([]byte(`{"age": "old"}`))
	require.NoError(t, err)

	_, err = rs.Filter(context.Background(), query.MustParse(`age > 3`))
	assert.True(t, errors.Is(err, query.ErrTypeMismatch), "got %v", err)

	_, err = rs.Filter(context.Background(), query.MustParse(`age == $0`))
	assert.True(t, errors.Is(err, query.ErrMissingArgument), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rs.Filter(ctx, query.Empty())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPrune(t *testing.T) {
	rs := newTestStore(t)
	for i := 0; i < 2500; i++ {
		_, err := rs.Put([]byte(fmt.Sprintf(`{"i": %d}`, i)))
		require.NoError(t, err)
	}

	pruned, err := rs.Prune(2001)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, pruned)

	n, err := rs.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 500, n)

	_, err = rs.Get(2000)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = rs.Get(2001)
	assert.NoError(t, err)
}

func TestRecordKey(t *testing.T) {
	for _, id := range []int64{1, 2, 255, 256, 1 << 40} {
		got, err := decodeRecordKey(recordKey(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	// Keys sort in ID order.
	assert.Less(t, string(recordKey(255)), string(recordKey(256)))
}
