package history

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/core/storage"
)

func newRecord(i int) request.Record {
	r := request.New(request.MethodGet, fmt.Sprintf("https://api.example.com/items/%d", i),
		map[string]string{"Accept": "application/json"}, "")
	r.Timestamp = int64(1_700_000_000_000 + i)
	return r
}

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (failingKV) Set(string, []byte) error         { return errors.New("disk gone") }
func (failingKV) Close() error                     { return nil }

func (failingKV) Update(string, storage.UpdateFunc) error { return errors.New("disk gone") }

func TestStore_RecordNewestFirst(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())

	r1, r2 := newRecord(1), newRecord(2)
	s.Record(r1)
	s.Record(r2)

	entries := s.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != r2.ID || entries[1].ID != r1.ID {
		t.Errorf("expected most recent first, got %s, %s", entries[0].URL, entries[1].URL)
	}
}

func TestStore_EvictsBeyondCap(t *testing.T) {
	kv := storage.NewMemory()
	s := NewStore(kv, zerolog.Nop())

	var recs []request.Record
	for i := 1; i <= MaxEntries+1; i++ {
		r := newRecord(i)
		recs = append(recs, r)
		s.Record(r)
	}

	entries := s.List()
	if len(entries) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(entries))
	}
	if entries[0].ID != recs[MaxEntries].ID {
		t.Errorf("first entry should be the 51st recorded")
	}
	if entries[MaxEntries-1].ID != recs[1].ID {
		t.Errorf("last entry should be the 2nd recorded")
	}
	if _, ok := s.Get(recs[0].ID); ok {
		t.Error("oldest entry should have been evicted")
	}

	// Persisted form matches memory.
	restored := Open(kv, zerolog.Nop())
	if !reflect.DeepEqual(restored.List(), entries) {
		t.Error("persisted list differs from in-memory list")
	}
}

func TestStore_ClearThenRestore(t *testing.T) {
	kv := storage.NewMemory()
	s := NewStore(kv, zerolog.Nop())
	s.Record(newRecord(1))
	s.Record(newRecord(2))

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected 0 entries after clear, got %d", s.Len())
	}

	restored := Open(kv, zerolog.Nop())
	if restored.Len() != 0 {
		t.Errorf("expected empty restore after clear, got %d", restored.Len())
	}
	data, ok, _ := kv.Get(StorageKey)
	if !ok || string(data) != "[]" {
		t.Errorf("persisted value = %q, want []", data)
	}
}

func TestStore_RoundTripPreservesFields(t *testing.T) {
	kv := storage.NewMemory()
	s := NewStore(kv, zerolog.Nop())

	r := request.New(request.MethodPatch, "https://api.example.com/users/1",
		map[string]string{"Content-Type": "application/json", "X-Trace": "abc"},
		`{"name":"ünïcode \"quoted\""}`)
	r.Name = "rename user"
	s.Record(newRecord(1))
	s.Record(r)

	before := s.List()
	restored := Open(kv, zerolog.Nop())
	after := restored.List()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("round trip mismatch:\n before %+v\n after  %+v", before, after)
	}
}

func TestStore_RestoreCorruptFailsSoft(t *testing.T) {
	for _, raw := range []string{"{not json", "null", `{"id":"x"}`, `"string"`, ""} {
		kv := storage.NewMemory()
		kv.Set(StorageKey, []byte(raw))

		s := Open(kv, zerolog.Nop())
		if s.Len() != 0 {
			t.Errorf("restore of %q: expected empty, got %d", raw, s.Len())
		}
		s.Record(newRecord(1))
		if s.Len() != 1 {
			t.Errorf("store unusable after corrupt restore of %q", raw)
		}
	}
}

func TestStore_RestoreTruncatesOversizedList(t *testing.T) {
	var entries []request.Record
	for i := 0; i < MaxEntries+10; i++ {
		entries = append(entries, newRecord(i))
	}
	data, err := Encode(entries)
	if err != nil {
		t.Fatal(err)
	}
	kv := storage.NewMemory()
	kv.Set(StorageKey, data)

	s := Open(kv, zerolog.Nop())
	if s.Len() != MaxEntries {
		t.Fatalf("expected %d, got %d", MaxEntries, s.Len())
	}
	if s.List()[0].ID != entries[0].ID {
		t.Error("truncation should keep the head of the list")
	}
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	s := Open(failingKV{}, zerolog.Nop())
	if s.Len() != 0 {
		t.Fatalf("expected empty, got %d", s.Len())
	}
	s.Record(newRecord(1))
	if s.Len() != 1 {
		t.Errorf("in-memory list should survive a failed write, got %d", s.Len())
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected 0 after clear, got %d", s.Len())
	}
}

func TestStore_ListIsACopy(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	s.Record(newRecord(1))

	l := s.List()
	l[0].URL = "mutated"
	l[0].Headers["Accept"] = "mutated"

	got := s.List()[0]
	if got.URL == "mutated" || got.Headers["Accept"] == "mutated" {
		t.Error("List should not expose internal state")
	}
}

func TestStore_Search(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	s.Record(request.New(request.MethodGet, "https://API.example.com/users", nil, ""))
	s.Record(request.New(request.MethodGet, "https://other.com/data", nil, ""))

	if got := s.Search("example.com"); len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
	if got := s.Search("api.EXAMPLE"); len(got) != 1 {
		t.Errorf("search should be case-insensitive, got %d", len(got))
	}
	if got := s.Search("nonexistent"); len(got) != 0 {
		t.Errorf("expected 0 results, got %d", len(got))
	}
}

func TestStore_SQLiteBackend(t *testing.T) {
	kv, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	s := Open(kv, zerolog.Nop())
	r := newRecord(7)
	s.Record(r)

	restored := Open(kv, zerolog.Nop())
	got, ok := restored.Get(r.ID)
	if !ok {
		t.Fatal("entry not restored from sqlite")
	}
	if !reflect.DeepEqual(got, r) {
		t.Errorf("got %+v, want %+v", got, r)
	}
}

func TestStore_ConcurrentRecord(t *testing.T) {
	kv := storage.NewMemory()
	s := NewStore(kv, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Record(newRecord(i))
		}(i)
	}
	wg.Wait()

	if s.Len() != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, s.Len())
	}
	restored := Open(kv, zerolog.Nop())
	if !reflect.DeepEqual(restored.List(), s.List()) {
		t.Error("persisted list diverged from memory under concurrency")
	}
}

func TestStore_TwoStoresShareSQLiteHistory(t *testing.T) {
	dir := t.TempDir()
	open := func() (*Store, storage.KV) {
		kv, err := storage.Open(storage.KindSQLite, dir)
		if err != nil {
			t.Fatal(err)
		}
		return Open(kv, zerolog.Nop()), kv
	}

	// Both stores load the empty history before either writes, like two
	// CLI invocations started at the same time.
	slow, slowKV := open()
	defer slowKV.Close()
	fast, fastKV := open()
	defer fastKV.Close()

	r1, r2 := newRecord(1), newRecord(2)
	fast.Record(r1)
	slow.Record(r2)

	if slow.Len() != 2 {
		t.Errorf("slow store sees %d entries, want 2", slow.Len())
	}

	restored, kv := open()
	defer kv.Close()
	entries := restored.List()
	if len(entries) != 2 {
		t.Fatalf("persisted %d entries, want 2", len(entries))
	}
	if entries[0].ID != r2.ID || entries[1].ID != r1.ID {
		t.Errorf("persisted order = %s, %s; want newest first", entries[0].URL, entries[1].URL)
	}

	fast.Clear()
	if restored := Open(kv, zerolog.Nop()); restored.Len() != 0 {
		t.Errorf("expected empty history after clear from another store, got %d", restored.Len())
	}
}
