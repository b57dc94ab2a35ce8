// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// record is the persisted store content
type record struct {
	Program     string    `cbor:"1,keyasint,omitempty"`
	Contrast    uint8     `cbor:"2,keyasint,omitempty"`
	HasContrast bool      `cbor:"3,keyasint,omitempty"`
	StoredAt    time.Time `cbor:"4,keyasint"`
}

var storeEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Store persists the last command text and the display contrast, the way
// the firmware keeps them in EEPROM. Every update rewrites the whole record.
type Store struct {
	mu   sync.Mutex
	path string
	rec  record
}

// OpenStore loads the record at path. A missing file is an empty store and
// an empty path never touches disk.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read program store: %w", err)
	}
	if err := cbor.Unmarshal(data, &s.rec); err != nil {
		return nil, fmt.Errorf("failed to decode program store %s: %w", path, err)
	}
	return s, nil
}

// StoreProgram persists command text
func (s *Store) StoreProgram(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Program = text
	s.rec.StoredAt = time.Now().UTC().Truncate(time.Second)
	return s.flush()
}

// RetrieveProgram returns the last stored command text
func (s *Store) RetrieveProgram() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Program
}

// StoredAt returns when the program was last stored
func (s *Store) StoredAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.StoredAt
}

// StoreContrast persists the display contrast
func (s *Store) StoreContrast(contrast uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Contrast = contrast
	s.rec.HasContrast = true
	return s.flush()
}

// RetrieveContrast returns the stored contrast, or def if none was stored
func (s *Store) RetrieveContrast(def uint8) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rec.HasContrast {
		return def
	}
	return s.rec.Contrast
}

// flush writes the record through a temporary file so a crash never leaves
// a torn record
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}

	data, err := storeEncMode.Marshal(s.rec)
	if err != nil {
		return fmt.Errorf("failed to encode program store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".helix-store-*")
	if err != nil {
		return fmt.Errorf("failed to write program store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write program store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write program store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write program store: %w", err)
	}
	return nil
}
