package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"
	"github.com/valyala/fastjson"

	"github.com/tendermint/tmquery/libs/pubsub/query"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// A Matcher decides whether a record is selected. A *query.Compiled is a
// Matcher.
type Matcher interface {
	Matches(rec query.Record, args ...interface{}) (bool, error)
}

// Record is a stored JSON document and its identifier.
type Record struct {
	ID   int64
	Data []byte
}

/*
RecordStore is a collection of JSON records kept in a key-value database.

Records are assigned increasing identifiers starting at 1 and are iterated
in identifier order. Each value is a JSON document; Put rejects anything
that does not parse.

RecordStore is safe for concurrent use.
*/
type RecordStore struct {
	db     dbm.DB
	parser fastjson.ParserPool

	mtx    sync.Mutex // serializes ID allocation
	nextID int64
}

// NewRecordStore returns a new RecordStore with the given DB, initialized
// to continue after the last record saved in it.
func NewRecordStore(db dbm.DB) (*RecordStore, error) {
	rs := &RecordStore{db: db}
	last, err := rs.lastID()
	if err != nil {
		return nil, err
	}
	rs.nextID = last + 1
	return rs, nil
}

func (rs *RecordStore) lastID() (int64, error) {
	iter, err := rs.db.ReverseIterator(recordKey(1), recordKey(1<<63-1))
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if iter.Valid() {
		id, err := decodeRecordKey(iter.Key())
		if err != nil {
			return 0, err
		}
		return id, nil
	}
	return 0, iter.Error()
}

// Put validates and saves a JSON record and returns its ID.
func (rs *RecordStore) Put(data []byte) (int64, error) {
	if err := fastjson.ValidateBytes(data); err != nil {
		return 0, fmt.Errorf("invalid record: %w", err)
	}
	rs.mtx.Lock()
	defer rs.mtx.Unlock()

	id := rs.nextID
	if err := rs.db.SetSync(recordKey(id), data); err != nil {
		return 0, err
	}
	rs.nextID++
	return id, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (rs *RecordStore) Get(id int64) ([]byte, error) {
	bz, err := rs.db.Get(recordKey(id))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return bz, nil
}

// Delete removes the record with the given ID, or reports ErrNotFound.
func (rs *RecordStore) Delete(id int64) error {
	key := recordKey(id)
	ok, err := rs.db.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return rs.db.DeleteSync(key)
}

// Count returns the number of stored records.
func (rs *RecordStore) Count() (int64, error) {
	var n int64
	err := rs.Iterate(context.Background(), func(Record) error {
		n++
		return nil
	})
	return n, err
}

// Iterate calls fn for each record in ID order, stopping at the first error.
// The Data slice passed to fn is only valid during the call.
func (rs *RecordStore) Iterate(ctx context.Context, fn func(Record) error) error {
	iter, err := rs.db.Iterator(recordKey(1), recordKey(1<<63-1))
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := decodeRecordKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(Record{ID: id, Data: iter.Value()}); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Filter returns the records matched by m, in ID order. The values of args
// are bound to the query's placeholders. An error evaluating the query
// against any record stops the scan.
func (rs *RecordStore) Filter(ctx context.Context, m Matcher, args ...interface{}) ([]Record, error) {
	p := rs.parser.Get()
	defer rs.parser.Put(p)

	var out []Record
	err := rs.Iterate(ctx, func(r Record) error {
		v, err := p.ParseBytes(r.Data)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}
		ok, err := m.Matches(query.NewJSONRecord(v), args...)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}
		if ok {
			out = append(out, Record{ID: r.ID, Data: append([]byte(nil), r.Data...)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prune removes all records with IDs below before. It returns the number of
// records removed.
func (rs *RecordStore) Prune(before int64) (uint64, error) {
	if before <= 1 {
		return 0, nil
	}
	return rs.pruneRange(recordKey(1), recordKey(before))
}

// pruneRange deletes the keys in [start, end) in batches of at most 1000
// keys.
func (rs *RecordStore) pruneRange(start, end []byte) (uint64, error) {
	var (
		err         error
		pruned      uint64
		totalPruned uint64
	)

	batch := rs.db.NewBatch()
	defer batch.Close()

	pruned, start, err = rs.batchDelete(batch, start, end)
	if err != nil {
		return totalPruned, err
	}

	// loop until we have finished iterating over all the keys by writing, opening a new batch
	// and incrementing through the next range of keys.
	for !bytes.Equal(start, end) {
		if err := batch.Write(); err != nil {
			return totalPruned, err
		}

		totalPruned += pruned

		if err := batch.Close(); err != nil {
			return totalPruned, err
		}

		batch = rs.db.NewBatch()

		pruned, start, err = rs.batchDelete(batch, start, end)
		if err != nil {
			return totalPruned, err
		}
	}

	// once we looped over all keys we do a final flush to disk
	if err := batch.WriteSync(); err != nil {
		return totalPruned, err
	}
	totalPruned += pruned
	return totalPruned, nil
}

// batchDelete adds keys from start to the batch until 1000 keys have been
// added or end is reached. It returns the key to resume from.
func (rs *RecordStore) batchDelete(batch dbm.Batch, start, end []byte) (uint64, []byte, error) {
	var pruned uint64
	iter, err := rs.db.Iterator(start, end)
	if err != nil {
		return pruned, start, err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		key := iter.Key()
		if err := batch.Delete(key); err != nil {
			return 0, start, fmt.Errorf("pruning error at key %X: %w", key, err)
		}

		pruned++
		if pruned == 1000 {
			iter.Next()
			if !iter.Valid() {
				return pruned, end, iter.Error()
			}
			return pruned, append([]byte(nil), iter.Key()...), iter.Error()
		}
	}

	return pruned, end, iter.Error()
}

// Close closes the underlying database.
func (rs *RecordStore) Close() error {
	return rs.db.Close()
}

//---------------------------------- KEY ENCODING -----------------------------------------

const (
	prefixRecord = int64(0)
)

func recordKey(id int64) []byte {
	key, err := orderedcode.Append(nil, prefixRecord, id)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeRecordKey(key []byte) (id int64, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &id)
	if err != nil {
		return
	}
	if len(remaining) != 0 {
		return -1, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixRecord {
		return -1, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixRecord, prefix)
	}
	return
}
