// Package resource holds scheduled resource handles and the registry that
// keeps exactly one handle per tag.
//
// A resource is something that can be used for one thing at a time, e.g. a
// room scheduled for a meeting, or a channel airing a program. A handle ties
// together a kind (resource category), a sub-id selecting one instance of that
// kind, and display strings (label, title).
package resource

import "sync"

// Separator joins kind and sub-id into a tag.
const Separator = "_"

// Tag composes the identity key of a (kind, subID) pair.
//
// Kinds should not contain Separator; otherwise two different pairs may
// produce the same tag ("A_B"+"C" vs "A"+"B_C").
func Tag(kind, subID string) string {
	return kind + Separator + subID
}

// Resource is a canonical resource handle. Kind and sub-id are fixed at
// construction; label and title may be set by a decorator.
type Resource struct {
	kind  string
	subID string
	tag   string

	mu    sync.RWMutex
	label string
	title string
}

func newResource(kind, subID string) *Resource {
	return &Resource{kind: kind, subID: subID, tag: Tag(kind, subID)}
}

func (r *Resource) Kind() string  { return r.kind }
func (r *Resource) SubID() string { return r.subID }
func (r *Resource) Tag() string   { return r.tag }

// String returns the tag.
func (r *Resource) String() string { return r.tag }

// Label returns the display label, or the tag when unset.
func (r *Resource) Label() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.label == "" {
		return r.tag
	}
	return r.label
}

func (r *Resource) SetLabel(v string) {
	r.mu.Lock()
	r.label = v
	r.mu.Unlock()
}

// Title returns the display title, or the tag when unset.
func (r *Resource) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.title == "" {
		return r.tag
	}
	return r.title
}

func (r *Resource) SetTitle(v string) {
	r.mu.Lock()
	r.title = v
	r.mu.Unlock()
}

// CSSClasses returns the row classes used by the grid client.
func (r *Resource) CSSClasses() string {
	return "rsrcRow " + r.kind + "row " + r.tag + "row"
}
