package model

import (
	"github.com/l10n-tools/l10nres/formats"
)

// Metadata is a key/value pair attached to an entry, section, or resource.
// Keys are not required to be unique, supporting multi-valued headers.
type Metadata struct {
	Key   string
	Value string
}

// Meta is an ordered metadata list.
type Meta []Metadata

// Get returns the value of the first metadata entry with a matching key.
func (m Meta) Get(key string) (string, bool) {
	for _, md := range m {
		if md.Key == key {
			return md.Value, true
		}
	}
	return "", false
}

// Has reports whether any metadata entry has a matching key and,
// when value is non-nil, a matching value.
func (m Meta) Has(key string, value *string) bool {
	for _, md := range m {
		if md.Key == key && (value == nil || md.Value == *value) {
			return true
		}
	}
	return false
}

// Set replaces the value of the first metadata entry with a matching key,
// or appends a new entry.
func (m Meta) Set(key, value string) Meta {
	for i, md := range m {
		if md.Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Metadata{Key: key, Value: value})
}

// Del removes all metadata entries with a matching key,
// returning the new list and the number of removed entries.
func (m Meta) Del(key string) (Meta, int) {
	out := m[:0]
	removed := 0
	for _, md := range m {
		if md.Key == key {
			removed++
		} else {
			out = append(out, md)
		}
	}
	return out, removed
}

// ID is an entry or section identifier: a tuple of non-empty strings.
// Entry identifiers are not normalized; they do not include the
// identifier of their section.
type ID []string

// Equal reports identifier equality.
func (id ID) Equal(other ID) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// Property is a secondary named message value on an entry,
// such as the attribute of a Fluent term or message.
type Property struct {
	Name  string
	Value Message
}

// Entry is a single message entry with its comment and metadata.
type Entry struct {
	// ID is a non-empty tuple of non-empty strings.
	ID ID

	// Value is the message. String values have all escapes processed.
	Value Message

	// Properties hold additional message values for the entry.
	Properties []Property

	// Comment is the entry comment with comment sigils stripped.
	// Multiple lines are separated by newline characters.
	Comment string

	Meta Meta
}

// Comment is a standalone comment between entries.
type Comment struct {
	Comment string
}

// SectionEntry is an element of a section body: *Entry or Comment.
type SectionEntry interface {
	sectionEntry()
}

func (*Entry) sectionEntry()  {}
func (Comment) sectionEntry() {}

// Section is a group of entries. The top-level or anonymous section has
// an empty ID.
type Section struct {
	ID      ID
	Entries []SectionEntry
	Comment string
	Meta    Meta
}

// Resource is a whole parsed localization file.
type Resource struct {
	// Format is the serialization format of the resource, if known.
	Format formats.Format

	Sections []*Section
	Comment  string
	Meta     Meta
}

// AllEntries returns all message entries in all sections, in order,
// skipping standalone comments.
func (r *Resource) AllEntries() []*Entry {
	var entries []*Entry
	for _, section := range r.Sections {
		for _, se := range section.Entries {
			if entry, ok := se.(*Entry); ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}
