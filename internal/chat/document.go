// Package chat owns one contract-editing session's conversational state and
// the single authoritative contract document.
package chat

import (
	"sync"
	"time"

	"github.com/procurement-tools/contractpilot/internal/domain"
)

// Document is the one authoritative copy of the contract content for a
// session. Every reader sees the latest value and every writer goes through
// Update or Save; independent copies never diverge silently.
type Document struct {
	mu        sync.RWMutex
	content   string
	revision  int
	updatedAt time.Time
}

// NewDocument creates an empty document at revision 0.
func NewDocument() *Document {
	return &Document{}
}

// Content returns the current content and its revision.
func (d *Document) Content() (string, int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content, d.revision
}

// UpdatedAt returns the time of the last update.
func (d *Document) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updatedAt
}

// Update replaces the content unconditionally and returns the new revision.
// This is the single entry point by which upload, regenerate, modify and
// applied chat suggestions become contract content.
func (d *Document) Update(content string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
	d.revision++
	d.updatedAt = time.Now()
	return d.revision
}

// Save is a compare-and-set update for editor saves: it fails with
// ErrRevisionConflict when the document moved past the revision the editor
// read.
func (d *Document) Save(content string, expectedRevision int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revision != expectedRevision {
		return d.revision, domain.ErrRevisionConflict
	}
	d.content = content
	d.revision++
	d.updatedAt = time.Now()
	return d.revision, nil
}
