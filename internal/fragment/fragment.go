package fragment

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Entry is one dotted path and the value a fragment declares for it.
type Entry struct {
	Path  string `json:"path"`
	Value Value  `json:"value"`
	Line  int    `json:"line,omitempty"`
}

// Fragment is one parsed configuration unit. It is immutable once built:
// accessors return copies.
type Fragment struct {
	label   string
	digest  string
	entries []Entry
	index   map[string]int
}

// Source is raw fragment text plus the label it is reported under.
type Source struct {
	Label   string
	Content []byte
}

// Digest returns the hex SHA-256 of content.
func Digest(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// New builds a fragment from already-parsed entries. Later entries for a
// path replace earlier ones but keep the first position.
func New(label string, content []byte, entries []Entry) *Fragment {
	b := newBuilder(label)
	for _, e := range entries {
		b.set(e.Path, e.Value, e.Line)
	}
	return b.build(Digest(content))
}

// Label returns the source label.
func (f *Fragment) Label() string { return f.label }

// Digest returns the hex SHA-256 of the source content.
func (f *Fragment) Digest() string { return f.digest }

// Len returns the number of declared paths.
func (f *Fragment) Len() int { return len(f.entries) }

// Entries returns the declared entries in declaration order.
func (f *Fragment) Entries() []Entry {
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Lookup returns the value declared at path.
func (f *Fragment) Lookup(path string) (Value, bool) {
	i, ok := f.index[path]
	if !ok {
		return Value{}, false
	}
	return f.entries[i].Value, true
}

// Has reports whether the fragment declares path.
func (f *Fragment) Has(path string) bool {
	_, ok := f.index[path]
	return ok
}

type fragmentJSON struct {
	Label   string  `json:"label"`
	Digest  string  `json:"digest"`
	Entries []Entry `json:"entries"`
}

// MarshalJSON encodes the fragment for caching and reports.
func (f *Fragment) MarshalJSON() ([]byte, error) {
	entries := f.entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(fragmentJSON{Label: f.label, Digest: f.digest, Entries: entries})
}

// UnmarshalJSON restores a fragment encoded by MarshalJSON.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw fragmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b := newBuilder(raw.Label)
	for _, e := range raw.Entries {
		b.set(e.Path, e.Value, e.Line)
	}
	*f = *b.build(raw.Digest)
	return nil
}

// builder accumulates entries while a fragment is parsed.
type builder struct {
	label   string
	entries []Entry
	index   map[string]int
}

func newBuilder(label string) *builder {
	return &builder{label: label, index: make(map[string]int)}
}

// set assigns path and returns the previous entry if one existed.
func (b *builder) set(path string, v Value, line int) (prev Entry, existed bool) {
	if i, ok := b.index[path]; ok {
		prev = b.entries[i]
		b.entries[i].Value = v
		b.entries[i].Line = line
		return prev, true
	}
	b.index[path] = len(b.entries)
	b.entries = append(b.entries, Entry{Path: path, Value: v, Line: line})
	return Entry{}, false
}

// appendItems extends the list at path, creating it if needed. ok is false
// when a scalar was already declared there; the scalar is replaced.
func (b *builder) appendItems(path string, items []Value, line int) (ok bool) {
	i, exists := b.index[path]
	if !exists {
		b.set(path, List(items...), line)
		return true
	}
	cur := b.entries[i].Value
	if cur.Kind() != KindList {
		b.entries[i].Value = List(items...)
		b.entries[i].Line = line
		return false
	}
	b.entries[i].Value = List(append(cur.Items(), items...)...)
	return true
}

func (b *builder) build(digest string) *Fragment {
	return &Fragment{label: b.label, digest: digest, entries: b.entries, index: b.index}
}
