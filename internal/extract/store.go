package extract

import (
	"sync"

	"gocv.io/x/gocv"
)

// StoredPreview is one retained frame from a run: its dense zero-based store
// index, the source frame it came from, and an optional downscaled heatmap.
type StoredPreview struct {
	Index       int
	SourceFrame int
	preview     gocv.Mat
}

// Store is the append-only sequence of previews built during one run and
// read afterwards by the navigator and re-processor. Indices are dense and
// assigned in processing order. There is no eviction; the store lives until
// the next run clears it.
type Store struct {
	mu      sync.RWMutex
	entries []StoredPreview
}

func NewStore() *Store {
	return &Store{}
}

// Add appends an entry and returns its index. The store takes ownership of
// preview (which may be an empty Mat when retention is off).
func (s *Store) Add(sourceFrame int, preview gocv.Mat) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.entries)
	s.entries = append(s.entries, StoredPreview{Index: idx, SourceFrame: sourceFrame, preview: preview})
	return idx
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SourceFrame maps a store index back to its source frame number.
func (s *Store) SourceFrame(index int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.entries) {
		return 0, false
	}
	return s.entries[index].SourceFrame, true
}

// Preview returns a clone of the stored preview image. The clone may be
// empty when the run did not retain previews.
func (s *Store) Preview(index int) (gocv.Mat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.entries) {
		return gocv.NewMat(), false
	}
	return s.entries[index].preview.Clone(), true
}

// SetPreview replaces a stored preview in place (after reprocessing). The
// store takes ownership of preview.
func (s *Store) SetPreview(index int, preview gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		preview.Close()
		return false
	}
	s.entries[index].preview.Close()
	s.entries[index].preview = preview
	return true
}

// Clear drops all entries and releases their images. Called at run start.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		s.entries[i].preview.Close()
	}
	s.entries = nil
}
