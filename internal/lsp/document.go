package lsp

import (
	"strings"
	"sync"
)

// documentRegistry tracks the version counter of every document synced to the
// server. The empty string is the path of a new, unsaved buffer. Versions
// strictly increase with every snapshot sent and are never reused: a session
// restart resets the whole registry because the fresh process has no memory
// of prior opens.
type documentRegistry struct {
	mu       sync.Mutex
	versions map[string]int
}

func newDocumentRegistry() *documentRegistry {
	return &documentRegistry{versions: map[string]int{}}
}

// Seen reports whether the path has ever been synced this session.
func (d *documentRegistry) Seen(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.versions[path]
	return ok
}

// Bump increments and returns the version for path, creating the entry on
// first use. Every open or change snapshot sent to the server consumes one
// version.
func (d *documentRegistry) Bump(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.versions[path]++
	return d.versions[path]
}

// Version returns the current version for path without advancing it.
func (d *documentRegistry) Version(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.versions[path]
}

// Forget drops the path from the registry.
func (d *documentRegistry) Forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.versions, path)
}

// Reset clears all version counters. Called on restart: the new server
// process starts with fresh document identities.
func (d *documentRegistry) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.versions = map[string]int{}
}

// ensureTrailingNewline normalizes buffer text before it is sent. Several
// language servers assume POSIX line termination and misreport positions on
// the last line without it.
func ensureTrailingNewline(code string) string {
	if strings.HasSuffix(code, "\n") {
		return code
	}
	return code + "\n"
}
