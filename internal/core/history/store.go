package history

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/core/storage"
)

// Store keeps the most recent requests, newest first, and writes the whole
// list through to its KV backend after every mutation.
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	log     zerolog.Logger
	entries []request.Record
}

// NewStore creates an empty store over kv. Call Restore to load the
// persisted list.
func NewStore(kv storage.KV, log zerolog.Logger) *Store {
	return &Store{
		kv:      kv,
		log:     log,
		entries: []request.Record{},
	}
}

// Open creates a store over kv and restores it.
func Open(kv storage.KV, log zerolog.Logger) *Store {
	s := NewStore(kv, log)
	s.Restore()
	return s
}

// Restore replaces the in-memory list with the persisted one. A missing,
// unreadable or corrupt value yields an empty list.
func (s *Store) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []request.Record{}

	data, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.log.Debug().Err(err).Str("key", StorageKey).Msg("history unreadable, starting empty")
		return
	}
	if !ok {
		return
	}
	entries, err := Decode(data)
	if err != nil {
		s.log.Debug().Err(err).Str("key", StorageKey).Msg("history corrupt, starting empty")
		return
	}
	s.entries = entries
	s.log.Debug().Int("entries", len(entries)).Msg("history restored")
}

// Record prepends rec to the persisted list, evicts everything past
// MaxEntries and writes it back. The list is re-read inside the write so
// entries recorded by other processes since Restore are kept.
func (s *Store) Record(rec request.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = rec.Clone()
	s.update(func(cur []request.Record) []request.Record {
		n := len(cur) + 1
		if n > MaxEntries {
			n = MaxEntries
		}
		next := make([]request.Record, 0, n)
		next = append(next, rec)
		return append(next, cur[:n-1]...)
	})
}

// Clear empties the history and persists.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update(func([]request.Record) []request.Record {
		return []request.Record{}
	})
}

// List returns a copy of the entries, newest first.
func (s *Store) List() []request.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]request.Record, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (request.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return request.Record{}, false
}

// Search returns entries whose URL contains query, case-insensitively,
// newest first.
func (s *Store) Search(query string) []request.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []request.Record
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.URL), q) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// update applies fn to the persisted list and stores the result, both in
// the backend and in memory. A missing or corrupt persisted value falls
// back to the in-memory list. Must be called with mu held. Failures leave
// fn's result in memory only.
func (s *Store) update(fn func([]request.Record) []request.Record) {
	var next []request.Record
	err := s.kv.Update(StorageKey, func(old []byte, ok bool) ([]byte, error) {
		cur := s.entries
		if ok {
			decoded, err := Decode(old)
			if err != nil {
				s.log.Debug().Err(err).Str("key", StorageKey).Msg("history corrupt, keeping memory")
			} else {
				cur = decoded
			}
		}
		next = fn(cur)
		return Encode(next)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("key", StorageKey).Msg("history not saved")
		next = fn(s.entries)
	}
	s.entries = next
}
