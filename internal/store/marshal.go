package store

import (
	"encoding/json"
	"fmt"

	"github.com/fiscalia/campo/internal/record"
)

// marshalChecklist converts checklist entries to JSON TEXT for storage.
// A nil slice is stored as "[]" so the column is never NULL and reads are
// shape-stable across records.
func marshalChecklist(entries []record.ChecklistEntry) (string, error) {
	if len(entries) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal checklist: %w", err)
	}
	return string(data), nil
}

// unmarshalChecklist parses JSON TEXT back into checklist entries.
func unmarshalChecklist(data string) ([]record.ChecklistEntry, error) {
	if data == "" || data == "[]" {
		return []record.ChecklistEntry{}, nil
	}
	var entries []record.ChecklistEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	return entries, nil
}
