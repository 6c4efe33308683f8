// Package collection models image collections, the groups images are uploaded into.
package collection

import (
	"fmt"
	"regexp"
	"sync"
)

// UnknownName is shown for collection IDs missing from the local directory.
const UnknownName = "Not Found"

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Collection is an image collection reference row (immutable value object).
type Collection struct {
	id           string
	name         string
	organization string
	contact      string
	description  string
}

// New validates and creates a Collection. ID: ^[a-zA-Z0-9_-]+$, 1-64 chars.
func New(id, name, organization, contact, description string) (Collection, error) {
	if id == "" {
		return Collection{}, fmt.Errorf("collection id is required")
	}
	if len(id) > 64 {
		return Collection{}, fmt.Errorf("collection id too long (max 64)")
	}
	if !idRegex.MatchString(id) {
		return Collection{}, fmt.Errorf("collection id must be alphanumeric with underscores and hyphens")
	}
	if name == "" {
		return Collection{}, fmt.Errorf("collection name is required")
	}
	return Collection{id: id, name: name, organization: organization, contact: contact, description: description}, nil
}

// Reconstruct restores a Collection from storage without validation.
func Reconstruct(id, name, organization, contact, description string) Collection {
	return Collection{id: id, name: name, organization: organization, contact: contact, description: description}
}

// ID returns the collection identifier.
func (c Collection) ID() string { return c.id }

// Name returns the display name.
func (c Collection) Name() string { return c.name }

// Organization returns the owning organization.
func (c Collection) Organization() string { return c.organization }

// Contact returns the contact info.
func (c Collection) Contact() string { return c.contact }

// Description returns the free-form description.
func (c Collection) Description() string { return c.description }

// Directory is the locally cached ID to name lookup used when labelling images.
type Directory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{names: make(map[string]string)}
}

// Replace swaps the whole directory contents.
func (d *Directory) Replace(cols []Collection) {
	names := make(map[string]string, len(cols))
	for _, c := range cols {
		names[c.id] = c.name
	}
	d.mu.Lock()
	d.names = names
	d.mu.Unlock()
}

// Put adds or updates one collection.
func (d *Directory) Put(c Collection) {
	d.mu.Lock()
	d.names[c.id] = c.name
	d.mu.Unlock()
}

// Remove drops one collection.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	delete(d.names, id)
	d.mu.Unlock()
}

// Name returns the collection name for id, or UnknownName.
func (d *Directory) Name(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n, ok := d.names[id]; ok {
		return n
	}
	return UnknownName
}

// Len returns the number of known collections.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
