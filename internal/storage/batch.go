package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Batch buffers writes that are applied together by Commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by databases whose batches commit atomically.
type Batcher interface {
	NewBatch() Batch
}

// batchOp is one buffered write; a nil value is a delete.
type batchOp struct {
	key   []byte
	value []byte
}

type opBuffer struct {
	ops []batchOp
}

func (b *opBuffer) Put(key, value []byte) error {
	b.ops = append(b.ops, batchOp{key: copyBytes(key), value: copyBytes(value)})
	return nil
}

func (b *opBuffer) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: copyBytes(key)})
	return nil
}

// NewBatch returns a batch applied under the write lock.
func (m *MemoryDB) NewBatch() Batch {
	return &memoryBatch{db: m}
}

type memoryBatch struct {
	opBuffer
	db *MemoryDB
}

func (b *memoryBatch) Commit() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.value == nil {
			delete(b.db.data, string(op.key))
			continue
		}
		b.db.data[string(op.key)] = op.value
	}
	b.ops = nil
	return nil
}

// NewBatch returns a batch applied in a single Badger transaction.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{db: b.db}
}

type badgerBatch struct {
	opBuffer
	db *badger.DB
}

func (b *badgerBatch) Commit() error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			var err error
			if op.value == nil {
				err = txn.Delete(op.key)
			} else {
				err = txn.Set(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger batch: %w", err)
	}
	b.ops = nil
	return nil
}
