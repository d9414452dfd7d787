package vectorindex

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns one Index per knowledge base. The knowledge base is the unit of
// concurrency control: mutations for a given knowledge base are serialized via
// LockWrites while reads proceed on snapshots without blocking.
type Manager struct {
	dimension int
	logger    *zap.Logger

	mu      sync.RWMutex
	indexes map[uuid.UUID]*Index
	locks   map[uuid.UUID]*sync.Mutex
}

// NewManager creates a manager whose indexes all share a fixed dimension
func NewManager(dimension int, logger *zap.Logger) *Manager {
	return &Manager{
		dimension: dimension,
		logger:    logger,
		indexes:   make(map[uuid.UUID]*Index),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// Dimension returns the fixed vector dimension shared by all indexes
func (m *Manager) Dimension() int {
	return m.dimension
}

// Get returns the index for a knowledge base, creating an empty one if absent
func (m *Manager) Get(kbID uuid.UUID) *Index {
	m.mu.RLock()
	idx, ok := m.indexes[kbID]
	m.mu.RUnlock()
	if ok {
		return idx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok = m.indexes[kbID]; ok {
		return idx
	}
	idx = New(m.dimension)
	m.indexes[kbID] = idx
	return idx
}

// LockWrites serializes mutations for one knowledge base. It returns the
// unlock function; reads are unaffected and keep seeing the pre-mutation
// snapshot until the writer publishes.
func (m *Manager) LockWrites(kbID uuid.UUID) func() {
	m.mu.Lock()
	lock, ok := m.locks[kbID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[kbID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Rebuild replaces the index of a knowledge base with one built from the given
// chunk store records. Used on startup warm-up and when drift from the durable
// store is detected.
func (m *Manager) Rebuild(kbID uuid.UUID, entries []Entry) error {
	idx := New(m.dimension)
	if err := idx.InsertBatch(entries); err != nil {
		return err
	}

	m.mu.Lock()
	m.indexes[kbID] = idx
	m.mu.Unlock()

	m.logger.Info("vector index rebuilt",
		zap.String("kb_id", kbID.String()),
		zap.Int("vectors", len(entries)))
	return nil
}

// Drop discards the index of a knowledge base entirely
func (m *Manager) Drop(kbID uuid.UUID) {
	m.mu.Lock()
	delete(m.indexes, kbID)
	delete(m.locks, kbID)
	m.mu.Unlock()

	m.logger.Debug("vector index dropped", zap.String("kb_id", kbID.String()))
}
