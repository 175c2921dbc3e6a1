// Package pointstore keeps the landmark point set of every image in memory.
//
// Each image identifier owns an ordered point set. Manual saves replace the
// whole set, automatic extraction appends to it, and ClearAutomatic removes
// only detector-produced points. Mutations on one identifier are serialized
// by a per-identifier mutex, different identifiers never contend.
package pointstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-compare/internal/landmark"
)

// entry is one image's point set and the lock guarding its read-modify-write.
type entry struct {
	mu     sync.Mutex
	points []landmark.Point
	// removed is set when Delete wins a race with a writer holding a stale pointer.
	removed bool
}

// Store maps image identifiers to point sets.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// KindStats holds per-kind point counts.
type KindStats struct {
	Manual    int `json:"manual"`
	Automatic int `json:"auto"`
	Total     int `json:"total"`
}

// Stats summarizes an image's point set by provenance and kind.
type Stats struct {
	ImageID   string                       `json:"image_id"`
	Total     int                          `json:"total_points"`
	Manual    int                          `json:"manual_points"`
	Automatic int                          `json:"auto_points"`
	ByKind    map[landmark.Kind]*KindStats `json:"type_statistics"`
}

// HasAutomatic reports whether any detector-produced point is stored.
func (s Stats) HasAutomatic() bool { return s.Automatic > 0 }

// HasManual reports whether any manually placed point is stored.
func (s Stats) HasManual() bool { return s.Manual > 0 }

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// lookup returns the entry for id, or nil.
func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// lockEntry returns the locked entry for id, creating it when create is set.
// Returns nil if the entry does not exist and create is false.
func (s *Store) lockEntry(id string, create bool) *entry {
	for {
		e := s.lookup(id)
		if e == nil {
			if !create {
				return nil
			}
			s.mu.Lock()
			e = s.entries[id]
			if e == nil {
				e = &entry{}
				s.entries[id] = e
			}
			s.mu.Unlock()
		}

		e.mu.Lock()
		if !e.removed {
			return e
		}
		// Deleted between lookup and lock: retry against the current map.
		e.mu.Unlock()
		if !create {
			return nil
		}
	}
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("image id is required: %w", landmark.ErrInvalidInput)
	}
	return nil
}

func validatePoints(points []landmark.Point) error {
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// SaveManual replaces the entire point set for id. Every point is stored as
// manual, including any that arrived with a detector index. Returns the
// number of stored points.
func (s *Store) SaveManual(id string, points []landmark.Point) (int, error) {
	if err := validateID(id); err != nil {
		return 0, err
	}
	replaced := make([]landmark.Point, len(points))
	for i, p := range points {
		replaced[i] = p.AsManual()
	}
	if err := validatePoints(replaced); err != nil {
		return 0, err
	}

	e := s.lockEntry(id, true)
	defer e.mu.Unlock()
	e.points = replaced
	return len(replaced), nil
}

// MergeAutomatic appends detector-produced points to the set for id, keeping
// existing points unchanged. Every point must be automatic; on any invalid
// point nothing is stored. Returns the size of the resulting set.
func (s *Store) MergeAutomatic(id string, points []landmark.Point) (int, error) {
	if err := validateID(id); err != nil {
		return 0, err
	}
	for i, p := range points {
		if !p.IsAutomatic() {
			return 0, fmt.Errorf("point %d (%q) has no detector index: %w", i, p.Label, landmark.ErrInvalidInput)
		}
	}
	if err := validatePoints(points); err != nil {
		return 0, err
	}

	e := s.lockEntry(id, true)
	defer e.mu.Unlock()
	merged := make([]landmark.Point, 0, len(e.points)+len(points))
	merged = append(merged, e.points...)
	merged = append(merged, points...)
	e.points = merged
	return len(merged), nil
}

// ClearAutomatic removes every automatic point from id's set and returns the
// number of remaining (manual) points.
func (s *Store) ClearAutomatic(id string) (int, error) {
	e := s.lockEntry(id, false)
	if e == nil {
		return 0, fmt.Errorf("feature points for image %s: %w", id, landmark.ErrNotFound)
	}
	defer e.mu.Unlock()

	kept := make([]landmark.Point, 0, len(e.points))
	for _, p := range e.points {
		if !p.IsAutomatic() {
			kept = append(kept, p)
		}
	}
	e.points = kept
	return len(kept), nil
}

// Get returns a copy of id's ordered point set.
func (s *Store) Get(id string) ([]landmark.Point, error) {
	e := s.lockEntry(id, false)
	if e == nil {
		return nil, fmt.Errorf("feature points for image %s: %w", id, landmark.ErrNotFound)
	}
	defer e.mu.Unlock()

	out := make([]landmark.Point, len(e.points))
	copy(out, e.points)
	return out, nil
}

// Delete removes id's entry entirely.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("feature points for image %s: %w", id, landmark.ErrNotFound)
	}

	e.mu.Lock()
	e.removed = true
	e.points = nil
	e.mu.Unlock()
	return nil
}

// Stats derives provenance and per-kind counts for id.
func (s *Store) Stats(id string) (*Stats, error) {
	points, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return ComputeStats(id, points), nil
}

// ComputeStats builds Stats for an arbitrary point set.
func ComputeStats(id string, points []landmark.Point) *Stats {
	st := &Stats{
		ImageID: id,
		Total:   len(points),
		ByKind:  make(map[landmark.Kind]*KindStats),
	}
	for _, p := range points {
		ks, ok := st.ByKind[p.Kind]
		if !ok {
			ks = &KindStats{}
			st.ByKind[p.Kind] = ks
		}
		if p.IsAutomatic() {
			st.Automatic++
			ks.Automatic++
		} else {
			st.Manual++
			ks.Manual++
		}
		ks.Total++
	}
	return st
}

// IDs returns the stored image identifiers in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored point sets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
