package query_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/tmquery/libs/pubsub/query"
	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

const testDoc = `{
  "name": "Jane Doe",
  "age": 34,
  "vip": true,
  "nickname": null,
  "tags": ["a", "b"],
  "address": {"city": "Zürich", "zip": "8001", "floor": 3.5}
}`

func testRecords(t *testing.T) map[string]query.Record {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(testDoc), &m))
	jr, err := query.ParseJSON([]byte(testDoc))
	require.NoError(t, err)
	return map[string]query.Record{
		"map":  query.MapRecord(m),
		"json": jr,
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		query string
		args  []interface{}
		want  bool
	}{
		{`TRUEPREDICATE`, nil, true},
		{`FALSEPREDICATE`, nil, false},
		{`NOT FALSEPREDICATE`, nil, true},

		{`name == "Jane Doe"`, nil, true},
		{`name == 'jane doe'`, nil, false},
		{`name != "Bob"`, nil, true},
		{`age == 34`, nil, true},
		{`age == 0x22`, nil, true},
		{`age == "34"`, nil, false},
		{`age > 30 AND age < 40`, nil, true},
		{`age >= 34 AND age <= 34`, nil, true},
		{`age > 34`, nil, false},
		{`address.floor > 3.25`, nil, true},
		{`address.city == "Zürich"`, nil, true},
		{`address.zip == "8001"`, nil, true},
		{`vip == true`, nil, true},
		{`vip == FALSE`, nil, false},
		{`nickname == nothing`, nil, true}, // null == missing
		{`missing == 1`, nil, false},
		{`missing != 1`, nil, true},
		{`missing < 1`, nil, false},
		{`missing CONTAINS "x"`, nil, false},
		{`tags == "a"`, nil, false},

		{`name CONTAINS "ne D"`, nil, true},
		{`name CONTAINS "NE D"`, nil, false},
		{`name BEGINSWITH "Jane"`, nil, true},
		{`name ENDSWITH "Doe"`, nil, true},
		{`name ENDSWITH "Jane"`, nil, false},

		{`age == $0`, []interface{}{34}, true},
		{`age == $0`, []interface{}{int64(35)}, false},
		{`name BEGINSWITH $1 AND age > $0`, []interface{}{30, "J"}, true},
		{`$0 == $1`, []interface{}{"x", "x"}, true},
		{`vip == $0`, []interface{}{true}, true},
		{`nickname == $0`, []interface{}{nil}, true},

		{`age < 30 OR vip == true`, nil, true},
		{`age < 30 OR vip == false`, nil, false},
		{`NOT (age < 30 OR vip == false)`, nil, true},
		{`age > 30 AND name == "x" OR vip == true`, nil, true},
		{`age > 30 AND (name == "x" OR vip == false)`, nil, false},
	}
	for name, rec := range testRecords(t) {
		rec := rec
		for _, test := range tests {
			test := test
			t.Run(name+"/"+test.query, func(t *testing.T) {
				q, err := query.New(test.query)
				require.NoError(t, err)
				got, err := q.Matches(rec, test.args...)
				require.NoError(t, err)
				assert.Equal(t, test.want, got)
			})
		}
	}
}

func TestShortCircuit(t *testing.T) {
	// The failing comparison is never evaluated.
	rec := query.MapRecord{"n": "text"}
	for _, s := range []string{
		`TRUEPREDICATE OR n > 1`,
		`FALSEPREDICATE AND n > 1`,
	} {
		q := query.MustParse(s)
		_, err := q.Matches(rec)
		assert.NoError(t, err, s)
	}
}

func TestMatchErrors(t *testing.T) {
	rec := query.MapRecord{"name": "x", "n": 1.0}
	tests := []struct {
		query string
		args  []interface{}
		want  error
	}{
		{`name < 5`, nil, query.ErrTypeMismatch},
		{`n CONTAINS $0`, []interface{}{"1"}, query.ErrTypeMismatch},
		{`name > $0`, []interface{}{"a"}, query.ErrTypeMismatch},
		{`n == $2`, []interface{}{1, 2}, query.ErrMissingArgument},
		{`NOT n == $0`, nil, query.ErrMissingArgument},
	}
	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			q := query.MustParse(test.query)
			_, err := q.Matches(rec, test.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.want), "got %v", err)
		})
	}

	q := query.MustParse(`n == $0`)
	_, err := q.Matches(rec, struct{}{})
	assert.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	for _, s := range []string{
		`name < "abc"`,
		`n CONTAINS 5`,
		`true BEGINSWITH x`,
		`x >= false`,
	} {
		_, err := query.New(s)
		assert.True(t, errors.Is(err, query.ErrTypeMismatch), "%s: got %v", s, err)
	}

	_, err := query.New(`a ==`)
	assert.True(t, errors.Is(err, syntax.ErrSyntax))
}

func TestEmpty(t *testing.T) {
	q := query.Empty()
	ok, err := q.Matches(query.MapRecord{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "TRUEPREDICATE", q.String())
}

func TestCompiledString(t *testing.T) {
	q := query.MustParse(`a=1 or b='x' and c>2`)
	assert.Equal(t, `a == 1 OR (b == "x" AND c > 2)`, q.String())
	assert.Equal(t, syntax.PredOr, q.Predicate().Type)
}
