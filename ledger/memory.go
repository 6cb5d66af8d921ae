package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Backend for tests and single-node tools.
type MemoryStore struct {
	mu          sync.Mutex
	records     map[string]Record
	incident    int64
	incidentSet bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Load(_ context.Context, subject string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[subject]
	if !ok {
		return Record{Subject: subject}, nil
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, rec Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.records[rec.Subject]
	if cur.Version != rec.Version {
		return false, nil
	}
	next := rec.Clone()
	next.Version = rec.Version + 1
	if next.Entries == nil {
		next.Entries = []Entry{}
	}
	m.records[rec.Subject] = next
	return true, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) IncidentTime(context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incident, m.incidentSet, nil
}

func (m *MemoryStore) InitIncidentTime(_ context.Context, ts int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.incidentSet {
		m.incident, m.incidentSet = ts, true
	}
	return m.incident, nil
}

func (m *MemoryStore) SetIncidentTime(_ context.Context, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incident, m.incidentSet = ts, true
	return nil
}

// Reset drops every record and the incident time, simulating a wiped cache.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
	m.incident, m.incidentSet = 0, false
}
