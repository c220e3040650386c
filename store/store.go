/*
Package store provides a btree backed, in memory key value store with
support for atomic batches of changes.

A cache wrap collects all writes in an overlay. Until written, the
underlying store does not observe any change. A single Write call applies
the whole overlay, while Discard drops it. This gives callers all or
nothing semantics for any group of updates.
*/
package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/splitter/errors"
)

// ReadOnlyKVStore provides read access to a key value store.
type ReadOnlyKVStore interface {
	// Get returns the value stored under given key or nil if the key does
	// not exist.
	Get(key []byte) ([]byte, error)

	// Has returns true if the key exists.
	Has(key []byte) (bool, error)

	// Iterate calls fn for every entry with a key within [start, end) in
	// ascending key order. A nil start or end means unbounded. Iteration
	// stops early when fn returns false.
	Iterate(start, end []byte, fn func(key, value []byte) bool) error
}

// KVStore extends read access with modifications.
type KVStore interface {
	ReadOnlyKVStore

	Set(key, value []byte) error
	Delete(key []byte) error
}

// CacheableKVStore is a store that can produce atomic overlays.
type CacheableKVStore interface {
	KVStore

	CacheWrap() KVCacheWrap
}

// KVCacheWrap is an overlay over a store. All modifications are kept local
// until Write is called. Discard drops them.
type KVCacheWrap interface {
	KVStore

	Write() error
	Discard()
}

// MemStore returns an empty in memory store. There is no persistence here.
func MemStore() CacheableKVStore {
	return &memStore{bt: btree.New(2)}
}

type memStore struct {
	bt *btree.BTree
}

var _ CacheableKVStore = (*memStore)(nil)

func (m *memStore) Get(key []byte) ([]byte, error) {
	item := m.bt.Get(bkey{key})
	if item == nil {
		return nil, nil
	}
	return item.(setItem).value, nil
}

func (m *memStore) Has(key []byte) (bool, error) {
	return m.bt.Has(bkey{key}), nil
}

func (m *memStore) Set(key, value []byte) error {
	m.bt.ReplaceOrInsert(newSetItem(key, value))
	return nil
}

func (m *memStore) Delete(key []byte) error {
	m.bt.Delete(bkey{key})
	return nil
}

func (m *memStore) Iterate(start, end []byte, fn func(key, value []byte) bool) error {
	visit := func(item btree.Item) bool {
		si := item.(setItem)
		return fn(si.key, si.value)
	}
	switch {
	case start == nil && end == nil:
		m.bt.Ascend(visit)
	case start == nil:
		m.bt.AscendLessThan(bkey{end}, visit)
	case end == nil:
		m.bt.AscendGreaterOrEqual(bkey{start}, visit)
	default:
		m.bt.AscendRange(bkey{start}, bkey{end}, visit)
	}
	return nil
}

func (m *memStore) CacheWrap() KVCacheWrap {
	return &cacheWrap{
		bt:   btree.New(2),
		back: m,
	}
}

// cacheWrap places a btree overlay over a KVStore. Reads prefer the
// overlay, falling back to the backing store. Writes never leave the
// overlay until Write is called.
type cacheWrap struct {
	bt   *btree.BTree
	back KVStore
}

var _ KVCacheWrap = (*cacheWrap)(nil)

// CacheWrap layers another overlay on top of this one. Don't change horses
// in mid-stream.
func (c *cacheWrap) CacheWrap() KVCacheWrap {
	return &cacheWrap{
		bt:   btree.New(2),
		back: c,
	}
}

func (c *cacheWrap) Get(key []byte) ([]byte, error) {
	if item := c.bt.Get(bkey{key}); item != nil {
		switch t := item.(type) {
		case setItem:
			return t.value, nil
		case deletedItem:
			return nil, nil
		default:
			return nil, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", item)
		}
	}
	return c.back.Get(key)
}

func (c *cacheWrap) Has(key []byte) (bool, error) {
	if item := c.bt.Get(bkey{key}); item != nil {
		switch item.(type) {
		case setItem:
			return true, nil
		case deletedItem:
			return false, nil
		default:
			return false, errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", item)
		}
	}
	return c.back.Has(key)
}

func (c *cacheWrap) Set(key, value []byte) error {
	c.bt.ReplaceOrInsert(newSetItem(key, value))
	return nil
}

func (c *cacheWrap) Delete(key []byte) error {
	c.bt.ReplaceOrInsert(newDeletedItem(key))
	return nil
}

// Iterate merges the overlay with the backing store. The overlay state
// always wins for keys present in both.
func (c *cacheWrap) Iterate(start, end []byte, fn func(key, value []byte) bool) error {
	// Merge into a throwaway btree so that entries come out in order,
	// with overlay state replacing the backing one.
	merged := btree.New(2)
	err := c.back.Iterate(start, end, func(key, value []byte) bool {
		merged.ReplaceOrInsert(newSetItem(key, value))
		return true
	})
	if err != nil {
		return err
	}

	overlay := func(item btree.Item) bool {
		switch t := item.(type) {
		case setItem:
			merged.ReplaceOrInsert(t)
		case deletedItem:
			merged.Delete(t)
		}
		return true
	}
	switch {
	case start == nil && end == nil:
		c.bt.Ascend(overlay)
	case start == nil:
		c.bt.AscendLessThan(bkey{end}, overlay)
	case end == nil:
		c.bt.AscendGreaterOrEqual(bkey{start}, overlay)
	default:
		c.bt.AscendRange(bkey{start}, bkey{end}, overlay)
	}

	merged.Ascend(func(item btree.Item) bool {
		si := item.(setItem)
		return fn(si.key, si.value)
	})
	return nil
}

// Write applies all overlay changes to the backing store. And then cleans
// up.
func (c *cacheWrap) Write() error {
	var err error
	c.bt.Ascend(func(item btree.Item) bool {
		switch t := item.(type) {
		case setItem:
			err = c.back.Set(t.key, t.value)
		case deletedItem:
			err = c.back.Delete(t.key)
		default:
			err = errors.Wrapf(errors.ErrDatabase, "unknown item in btree: %#v", item)
		}
		return err == nil
	})
	c.Discard()
	return err
}

// Discard invalidates this overlay and releases all cached data.
func (c *cacheWrap) Discard() {
	c.bt.Clear(false)
}

// we enforce all data in our btree implements keyer so we can compare
// nicely.
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item and may be used for queries or
// embedded in data to store.
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first.
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type deletedItem struct {
	bkey
}

func newDeletedItem(key []byte) deletedItem {
	return deletedItem{bkey{key}}
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
