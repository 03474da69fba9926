package locking

import (
	"sort"
	"sync"
)

// KeyedMutex hands out one mutation lock per entity key
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty lock table
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the locks of every key in sorted order and returns the release func.
// Duplicate and empty keys are ignored.
func (k *KeyedMutex) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, key)
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, key := range uniq {
		m := k.lockFor(key)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (k *KeyedMutex) lockFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// StandKey returns the lock key of a stand
func StandKey(id string) string { return "stand:" + id }

// SupplierKey returns the lock key of a supplier
func SupplierKey(id string) string {
	if id == "" {
		return ""
	}
	return "supplier:" + id
}

// AgentKey returns the lock key of a purchasing agent
func AgentKey(id string) string { return "agent:" + id }
