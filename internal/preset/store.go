// SPDX-License-Identifier: MIT
package preset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

var (
	// ErrNotFound is returned when a named preset does not exist in a Store.
	ErrNotFound = errors.New("preset not found")
	// ErrInvalidName is returned for names that cannot be used as file names.
	ErrInvalidName = errors.New("invalid preset name")
)

// Store is a directory of presets, one "<name>.json" file per preset.
// Names are unique within a store because they map to file names.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("preset store directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preset directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// List returns the sorted names of all stored presets.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the preset stored under name.
func (s *Store) Load(name string) (Preset, error) {
	path, err := s.path(name)
	if err != nil {
		return Preset{}, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return LoadFile(path)
}

// Save validates p and writes it under p.Name, replacing any existing
// preset of that name. The file is written to a temporary name first and
// renamed into place.
func (s *Store) Save(p Preset) error {
	path, err := s.path(p.Name)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := Encode(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".preset-*")
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	return nil
}

// Import decodes a preset from r and saves it into the store.
func (s *Store) Import(r io.Reader) (Preset, error) {
	p, err := Read(r)
	if err != nil {
		return Preset{}, err
	}
	if err := s.Save(p); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Export writes the named preset to w.
func (s *Store) Export(name string, w io.Writer) error {
	p, err := s.Load(name)
	if err != nil {
		return err
	}
	return Write(w, p)
}

// Delete removes the named preset.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+fileExt), nil
}
