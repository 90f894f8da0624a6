// Package runstore persists chunk run results keyed by the machine they
// were built against, so distributed workers can ship tables through
// shared storage and a coordinator can reduce them later. Two backends
// share one interface: an in-memory store for tests and single-process
// use, and a SQLite store for durable state.
package runstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pflow-xyz/go-qre/chunk"
	"github.com/pflow-xyz/go-qre/cra"
)

// ErrNotFound is returned when no record carries the requested ID.
var ErrNotFound = errors.New("runstore: record not found")

// Record is one persisted chunk result: its identity, the machine it
// belongs to, the position and extent of the chunk in the stream, and the
// encoded table.
type Record struct {
	ID         string
	MachineCID string
	Offset     uint64 // first symbol index covered
	Len        uint64 // symbols covered
	Payload    []byte // encoded chunk.RunResult
	CreatedAt  time.Time
}

// Store persists chunk records.
type Store interface {
	// Save writes the record, assigning ID and CreatedAt when unset.
	Save(ctx context.Context, rec *Record) error
	// Load returns the record with the given ID.
	Load(ctx context.Context, id string) (*Record, error)
	// List returns all records for a machine, ordered by chunk offset.
	List(ctx context.Context, machineCID string) ([]*Record, error)
	Close() error
}

// NewRecord encodes a run result into a record ready to Save.
func NewRecord(m *cra.Machine, r *chunk.RunResult, offset uint64) (*Record, error) {
	payload, err := r.Encode(m)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:         uuid.NewString(),
		MachineCID: m.CID(),
		Offset:     offset,
		Len:        r.Len,
		Payload:    payload,
	}, nil
}

// Result decodes the record's table against the machine it was built for.
func (r *Record) Result(m *cra.Machine) (*chunk.RunResult, error) {
	return chunk.Decode(m, r.Payload)
}

// MemoryStore keeps records in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*Record)}
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	s.mu.Lock()
	s.recs[cp.ID] = &cp
	s.mu.Unlock()
	return nil
}

// Load returns the record with the given ID.
func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns the machine's records ordered by chunk offset.
func (s *MemoryStore) List(_ context.Context, machineCID string) ([]*Record, error) {
	s.mu.RLock()
	var out []*Record
	for _, rec := range s.recs {
		if rec.MachineCID == machineCID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out, nil
}

// Close releases nothing; it exists to satisfy Store.
func (s *MemoryStore) Close() error { return nil }
