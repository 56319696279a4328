package controls

import (
	"sync"

	"github.com/efficientgo/core/errors"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

// ErrNotStored is returned by a Store that holds no value for a control.
var ErrNotStored = errors.New("control value not stored")

// Store holds current control values. Values are already validated when they
// reach Save.
type Store interface {
	Load(unitID, code uint8) ([]byte, error)
	Save(unitID, code uint8, value []byte) error
}

type storeKey struct {
	unitID, code uint8
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[storeKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[storeKey][]byte)}
}

func (s *MemoryStore) Load(unitID, code uint8) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[storeKey{unitID, code}]
	if !ok {
		return nil, ErrNotStored
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Save(unitID, code uint8, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[storeKey{unitID, code}] = append([]byte(nil), value...)
	return nil
}

// Clear drops every stored value.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}
