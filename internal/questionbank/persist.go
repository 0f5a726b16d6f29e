package questionbank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnreadable reports a bank file that exists but cannot be read as a bank.
var ErrUnreadable = errors.New("knowledge base unreadable")

// Load merges the entries stored at path into b and returns how many were
// skipped as malformed. A missing file leaves b unchanged.
//
// The file is a JSON array of entries; an object holding the array under
// "questions" is accepted too.
func (b *Bank) Load(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("knowledge base path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	raws, err := splitEntries(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	skipped := 0
	for i, raw := range raws {
		rec, err := decodeEntry(raw, i)
		if err != nil {
			skipped++
			b.logger.Warn("skipping knowledge base entry", "path", path, "entry", i, "reason", err)
			continue
		}
		b.merge(rec)
	}
	if skipped > 0 {
		b.logger.Warn("knowledge base loaded with skipped entries", "path", path, "skipped", skipped, "loaded", len(raws)-skipped)
	}
	return skipped, nil
}

func splitEntries(data []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Questions == nil {
		return nil, errors.New("no entry list found")
	}
	return wrapped.Questions, nil
}

// Save writes every record to path through a temporary file and a rename,
// so an interrupted save never leaves a truncated bank behind.
func (b *Bank) Save(path string) error {
	if path == "" {
		return fmt.Errorf("knowledge base path is required")
	}
	records := b.Records()
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = NewEntry(r)
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := file.Write(payload)
	syncErr := file.Sync()
	closeErr := file.Close()
	for _, err := range []error{writeErr, syncErr, closeErr} {
		if err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
