package store

import (
	"fmt"
	"sort"
)

// ChangeKind classifies a declaration between two runs.
type ChangeKind string

const (
	SurfaceAdded   ChangeKind = "added"
	SurfaceRemoved ChangeKind = "removed"
	SurfaceChanged ChangeKind = "changed"
)

// SurfaceChange is one declaration whose public shape differs between runs.
type SurfaceChange struct {
	Name   string
	Kind   string
	Change ChangeKind
}

// surfaceKey uniquely identifies a declaration by (name, kind).
type surfaceKey struct {
	Name string
	Kind string
}

// SurfaceDelta compares two runs' surfaces. Unchanged declarations are
// omitted. Results are sorted by name, then kind.
func SurfaceDelta(prev, next []*SurfaceEntry) []SurfaceChange {
	// Overloads share a key; fold their hashes in order.
	fold := func(entries []*SurfaceEntry) map[surfaceKey]string {
		m := make(map[surfaceKey]string, len(entries))
		for _, e := range entries {
			k := surfaceKey{e.Name, e.Kind}
			m[k] += e.SignatureHash + ";"
		}
		return m
	}
	oldByKey := fold(prev)
	newByKey := fold(next)

	var changes []SurfaceChange
	for key, oldHash := range oldByKey {
		if newHash, ok := newByKey[key]; ok {
			if oldHash != newHash {
				changes = append(changes, SurfaceChange{key.Name, key.Kind, SurfaceChanged})
			}
		} else {
			changes = append(changes, SurfaceChange{key.Name, key.Kind, SurfaceRemoved})
		}
	}
	for key := range newByKey {
		if _, ok := oldByKey[key]; !ok {
			changes = append(changes, SurfaceChange{key.Name, key.Kind, SurfaceAdded})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Name != changes[j].Name {
			return changes[i].Name < changes[j].Name
		}
		return changes[i].Kind < changes[j].Kind
	})
	return changes
}

// LatestSurfaceDelta compares the two newest runs of a file. A file with
// fewer than two runs has no delta.
func (s *Store) LatestSurfaceDelta(fileID int64) ([]SurfaceChange, error) {
	runs, err := s.RunsByFile(fileID, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, nil
	}
	next, err := s.SurfaceByRun(runs[0].ID)
	if err != nil {
		return nil, fmt.Errorf("surface delta: %w", err)
	}
	prev, err := s.SurfaceByRun(runs[1].ID)
	if err != nil {
		return nil, fmt.Errorf("surface delta: %w", err)
	}
	return SurfaceDelta(prev, next), nil
}
