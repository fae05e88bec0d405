package metadata

import (
	"sort"
	"strings"
)

// IdentifierGoodreads is the identifier key used for Goodreads book ids.
const IdentifierGoodreads = "goodreads"

// Record is a catalog metadata record.
type Record struct {
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Title       string            `json:"title,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

// Identifier returns the identifier stored under name.
func (r Record) Identifier(name string) (string, bool) {
	v, ok := r.Identifiers[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// SetIdentifier stores value under name. Empty values remove the key.
func (r *Record) SetIdentifier(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(r.Identifiers, name)
		return
	}
	if r.Identifiers == nil {
		r.Identifiers = make(map[string]string)
	}
	r.Identifiers[name] = value
}

// SetTags stores a deduplicated, sorted copy of tags.
func (r *Record) SetTags(tags []string) {
	r.Tags = normalizeTags(tags)
}

// MergeTags adds tags to the record, keeping the set deduplicated.
func (r *Record) MergeTags(tags []string) {
	r.Tags = normalizeTags(append(append([]string(nil), r.Tags...), tags...))
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{
		Title:   r.Title,
		Authors: append([]string(nil), r.Authors...),
		Tags:    append([]string(nil), r.Tags...),
	}
	if r.Identifiers != nil {
		out.Identifiers = make(map[string]string, len(r.Identifiers))
		for k, v := range r.Identifiers {
			out.Identifiers[k] = v
		}
	}
	return out
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
