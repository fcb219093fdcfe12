package history

import (
	"encoding/json"
	"fmt"

	"github.com/sadopc/apitester/internal/core/request"
)

const (
	// StorageKey is the key the history list is persisted under.
	StorageKey = "api-tester-history"

	// MaxEntries caps the history length.
	MaxEntries = 50
)

// Encode serializes entries as the persisted JSON array.
func Encode(entries []request.Record) ([]byte, error) {
	if entries == nil {
		entries = []request.Record{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return data, nil
}

// Decode parses a persisted JSON array. Entries past MaxEntries are dropped.
func Decode(data []byte) ([]request.Record, error) {
	var entries []request.Record
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("decoding history: not an array")
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}
