package types

import (
	"bytes"
	"errors"
	"io"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"

	"cosmossdk.io/store/cachekv"
	"cosmossdk.io/store/tracekv"
	storetypes "cosmossdk.io/store/types"
)

var (
	_ wasmvmtypes.KVStore = &StoreAdapter{}
	_ storetypes.KVStore  = &ClientRecoveryStore{}
	_ storetypes.KVStore  = &HostStore{}

	SubjectPrefix    = []byte("subject/")
	SubstitutePrefix = []byte("substitute/")
)

// ClientRecoveryStore is the store handed to the client when a subject client
// is recovered from a substitute. Keys under "subject/" address the subject
// store and keys under "substitute/" the substitute store. The substitute is
// read only: writes outside "subject/" are dropped and other keys read as absent.
type ClientRecoveryStore struct {
	subjectStore    storetypes.KVStore
	substituteStore storetypes.KVStore
}

// NewClientRecoveryStore returns a ClientRecoveryStore over the two client stores.
func NewClientRecoveryStore(subjectStore, substituteStore storetypes.KVStore) ClientRecoveryStore {
	if subjectStore == nil || substituteStore == nil {
		panic(errors.New("subject and substitute stores must not be nil"))
	}

	return ClientRecoveryStore{
		subjectStore:    subjectStore,
		substituteStore: substituteStore,
	}
}

// route returns the store owning key, the recognised prefix and the key within that store.
func (s ClientRecoveryStore) route(key []byte) (storetypes.KVStore, []byte, []byte) {
	prefix, rest := SplitPrefix(key)
	switch {
	case bytes.Equal(prefix, SubjectPrefix):
		return s.subjectStore, prefix, rest
	case bytes.Equal(prefix, SubstitutePrefix):
		return s.substituteStore, prefix, rest
	default:
		return nil, nil, key
	}
}

func (s ClientRecoveryStore) Get(key []byte) []byte {
	store, _, key := s.route(key)
	if store == nil {
		return nil
	}
	return store.Get(key)
}

func (s ClientRecoveryStore) Has(key []byte) bool {
	store, _, key := s.route(key)
	return store != nil && store.Has(key)
}

func (s ClientRecoveryStore) Set(key, value []byte) {
	store, prefix, key := s.route(key)
	if bytes.Equal(prefix, SubjectPrefix) {
		store.Set(key, value)
	}
}

func (s ClientRecoveryStore) Delete(key []byte) {
	store, prefix, key := s.route(key)
	if bytes.Equal(prefix, SubjectPrefix) {
		store.Delete(key)
	}
}

func (s ClientRecoveryStore) Iterator(start, end []byte) storetypes.Iterator {
	return s.iterator(start, end, false)
}

func (s ClientRecoveryStore) ReverseIterator(start, end []byte) storetypes.Iterator {
	return s.iterator(start, end, true)
}

// iterator serves ranges that stay within one prefix. An end key equal to the
// end of the prefix range, as sent by prefix stores, iterates to the end of
// the owning store. Any other range yields a closed iterator.
func (s ClientRecoveryStore) iterator(start, end []byte, reverse bool) storetypes.Iterator {
	store, prefix, start := s.route(start)
	if store == nil {
		return s.closedIterator()
	}
	if len(start) == 0 {
		start = nil
	}

	endStore, endPrefix, endKey := s.route(end)
	switch {
	case end == nil || bytes.Equal(end, storetypes.PrefixEndBytes(prefix)):
		end = nil
	case endStore != nil && bytes.Equal(endPrefix, prefix) && len(endKey) != 0:
		end = endKey
	default:
		return s.closedIterator()
	}

	it := store.Iterator
	if reverse {
		it = store.ReverseIterator
	}
	return prefixedIterator{Iterator: it(start, end), prefix: prefix}
}

// prefixedIterator reports keys with the prefix of the store they were read from.
type prefixedIterator struct {
	storetypes.Iterator
	prefix []byte
}

func (it prefixedIterator) Key() []byte {
	return append(bytes.Clone(it.prefix), it.Iterator.Key()...)
}

func (s ClientRecoveryStore) GetStoreType() storetypes.StoreType {
	return s.substituteStore.GetStoreType()
}

func (s ClientRecoveryStore) CacheWrap() storetypes.CacheWrap {
	return cachekv.NewStore(s)
}

func (s ClientRecoveryStore) CacheWrapWithTrace(w io.Writer, tc storetypes.TraceContext) storetypes.CacheWrap {
	return cachekv.NewStore(tracekv.NewStore(s, w, tc))
}

// closedIterator returns an exhausted iterator.
func (s ClientRecoveryStore) closedIterator() storetypes.Iterator {
	it := s.subjectStore.Iterator([]byte{0}, []byte{1})
	it.Close()
	return it
}

// SplitPrefix separates a "subject/" or "substitute/" prefix from key. The
// prefix is nil when key carries neither.
func SplitPrefix(key []byte) ([]byte, []byte) {
	for _, prefix := range [][]byte{SubjectPrefix, SubstitutePrefix} {
		if bytes.HasPrefix(key, prefix) {
			return prefix, key[len(prefix):]
		}
	}
	return nil, key
}

// StoreAdapter exposes an SDK store through the store interface the contract entry points receive.
type StoreAdapter struct {
	parent storetypes.KVStore
}

// NewStoreAdapter returns a StoreAdapter over s.
func NewStoreAdapter(s storetypes.KVStore) *StoreAdapter {
	if s == nil {
		panic(errors.New("store must not be nil"))
	}
	return &StoreAdapter{parent: s}
}

// Get implements the wasmvmtypes.KVStore interface.
func (s StoreAdapter) Get(key []byte) []byte {
	return s.parent.Get(key)
}

// Set implements the wasmvmtypes.KVStore interface.
func (s StoreAdapter) Set(key, value []byte) {
	s.parent.Set(key, value)
}

// Delete implements the wasmvmtypes.KVStore interface.
func (s StoreAdapter) Delete(key []byte) {
	s.parent.Delete(key)
}

// Iterator implements the wasmvmtypes.KVStore interface.
func (s StoreAdapter) Iterator(start, end []byte) wasmvmtypes.Iterator {
	return s.parent.Iterator(start, end)
}

// ReverseIterator implements the wasmvmtypes.KVStore interface.
func (s StoreAdapter) ReverseIterator(start, end []byte) wasmvmtypes.Iterator {
	return s.parent.ReverseIterator(start, end)
}

// HostStore exposes the store handed in by the host as an SDK KVStore so that
// prefix, cache and trace wrappers can be layered over it.
type HostStore struct {
	parent wasmvmtypes.KVStore
}

// NewHostStore returns a HostStore over s.
func NewHostStore(s wasmvmtypes.KVStore) *HostStore {
	if s == nil {
		panic(errors.New("store must not be nil"))
	}
	return &HostStore{parent: s}
}

// Get implements the storetypes.KVStore interface.
func (s HostStore) Get(key []byte) []byte {
	return s.parent.Get(key)
}

// Has implements the storetypes.KVStore interface.
func (s HostStore) Has(key []byte) bool {
	return s.parent.Get(key) != nil
}

// Set implements the storetypes.KVStore interface.
func (s HostStore) Set(key, value []byte) {
	storetypes.AssertValidKey(key)
	storetypes.AssertValidValue(value)
	s.parent.Set(key, value)
}

// Delete implements the storetypes.KVStore interface.
func (s HostStore) Delete(key []byte) {
	s.parent.Delete(key)
}

// Iterator implements the storetypes.KVStore interface.
func (s HostStore) Iterator(start, end []byte) storetypes.Iterator {
	return s.parent.Iterator(start, end)
}

// ReverseIterator implements the storetypes.KVStore interface.
func (s HostStore) ReverseIterator(start, end []byte) storetypes.Iterator {
	return s.parent.ReverseIterator(start, end)
}

// GetStoreType implements the storetypes.KVStore interface.
func (HostStore) GetStoreType() storetypes.StoreType {
	return storetypes.StoreTypeDB
}

// CacheWrap implements the storetypes.KVStore interface.
func (s HostStore) CacheWrap() storetypes.CacheWrap {
	return cachekv.NewStore(s)
}

// CacheWrapWithTrace implements the storetypes.KVStore interface.
func (s HostStore) CacheWrapWithTrace(w io.Writer, tc storetypes.TraceContext) storetypes.CacheWrap {
	return cachekv.NewStore(tracekv.NewStore(s, w, tc))
}
