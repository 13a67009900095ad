package store

import (
	"fmt"
	"sync"
)

// Recorder is the write side shared by Store and BatchedStore.
type Recorder interface {
	RecordRun(rec *RunRecord) (int64, error)
}

var (
	_ Recorder = (*Store)(nil)
	_ Recorder = (*BatchedStore)(nil)
)

// BatchedStore buffers run records in memory so concurrent prune jobs
// never contend on SQLite. Buffered runs receive fake (negative) IDs until
// CommitBatch writes them.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Read queries pass through to the underlying Store, which is safe for
// concurrent reads.
type BatchedStore struct {
	store *Store
	mu    sync.Mutex

	Runs []RunRecord

	nextFakeID int64 // starts at -1, decrements
}

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// RecordRun buffers rec and returns its fake run ID.
func (b *BatchedStore) RecordRun(rec *RunRecord) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	rec.Run.ID = fakeID
	b.Runs = append(b.Runs, *rec)
	return fakeID, nil
}

// FileByPath reads through to the database.
func (b *BatchedStore) FileByPath(path string) (*File, error) {
	return b.store.FileByPath(path)
}

// LatestRun reads through to the database.
func (b *BatchedStore) LatestRun(fileID int64) (*Run, error) {
	return b.store.LatestRun(fileID)
}

// Len returns the number of buffered runs.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Runs)
}

// CommitBatch writes every buffered run from batch in a single
// transaction, in the order they were recorded, and clears the buffer.
// Returns a map from fake to real run IDs.
func (s *Store) CommitBatch(batch *BatchedStore) (map[int64]int64, error) {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64, len(batch.Runs))
	for i := range batch.Runs {
		rec := &batch.Runs[i]
		fakeID := rec.Run.ID
		realID, err := recordRunTx(tx, rec)
		if err != nil {
			return nil, fmt.Errorf("commit batch: %s: %w", rec.Path, err)
		}
		fakeToReal[fakeID] = realID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: commit: %w", err)
	}
	batch.Runs = nil
	return fakeToReal, nil
}
