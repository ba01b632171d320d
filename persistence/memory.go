// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package persistence

// MemoryDB is a trivial in-process Database, the default backing store for
// cmd/nockbridged's demonstration driver. It satisfies the Database
// interface with a plain map and no durability across process restarts —
// a real deployment supplies its own Database (e.g. the teacher's
// crypto/database backends), this one only exists so the driver has
// something to load/save against out of the box.
type MemoryDB struct {
	m map[string][]byte
}

// NewMemoryDB returns an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{m: make(map[string][]byte)}
}

func (d *MemoryDB) Has(key []byte) (bool, error) {
	_, ok := d.m[string(key)]
	return ok, nil
}

func (d *MemoryDB) Get(key []byte) ([]byte, error) {
	v, ok := d.m[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *MemoryDB) Put(key, value []byte) error {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	d.m[string(k)] = v
	return nil
}

func (d *MemoryDB) Delete(key []byte) error {
	delete(d.m, string(key))
	return nil
}

func (d *MemoryDB) NewBatch() Batch {
	return &memoryBatch{db: d}
}

func (d *MemoryDB) Close() error { return nil }

type memoryBatch struct {
	db  *MemoryDB
	ops []func(*MemoryDB)
}

func (b *memoryBatch) Put(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	b.ops = append(b.ops, func(d *MemoryDB) { d.m[string(k)] = v })
	return nil
}

func (b *memoryBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func(d *MemoryDB) { delete(d.m, string(k)) })
	return nil
}

func (b *memoryBatch) Size() int { return len(b.ops) }

func (b *memoryBatch) Write() error {
	for _, op := range b.ops {
		op(b.db)
	}
	return nil
}

func (b *memoryBatch) Reset() { b.ops = nil }

func (b *memoryBatch) Replay(w Writer) error {
	for _, op := range b.ops {
		op(b.db)
	}
	return nil
}
