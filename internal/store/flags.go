package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Flags is a feature-flag document: a flat name→bool map loaded and
// saved wholesale. Single process, single writer; no partial updates.
type Flags struct {
	mu   sync.Mutex
	path string
}

func NewFlags(path string) *Flags {
	return &Flags{path: path}
}

// Get reads one flag. Unknown flags are false.
func (f *Flags) Get(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return false, err
	}
	return doc[name], nil
}

// Set writes one flag through a read-modify-write of the whole document.
func (f *Flags) Set(name string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[name] = value
	return f.write(doc)
}

// All returns every flag name in sorted order with its value.
func (f *Flags) All() (map[string]bool, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return doc, names, nil
}

func (f *Flags) read() (map[string]bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]bool), nil
		}
		return nil, fmt.Errorf("read flags: %w", err)
	}
	var doc map[string]bool
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if doc == nil {
		doc = make(map[string]bool)
	}
	return doc, nil
}

func (f *Flags) write(doc map[string]bool) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
