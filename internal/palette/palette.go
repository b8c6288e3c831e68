// Package palette holds the color→label table used to read mask images and
// the category ids derived from it.
package palette

import (
	"fmt"

	"mask2coco/pkg/colorutil"
)

// Entry maps one exact color to a label.
type Entry struct {
	Color      colorutil.RGB
	Label      string
	CategoryID int
}

// Category is a label with its stable id.
type Category struct {
	ID   int
	Name string
}

// Spec is the unparsed form of an entry, as it appears in configuration.
type Spec struct {
	Color string `mapstructure:"color" json:"color"`
	Label string `mapstructure:"label" json:"label"`
}

// Palette is immutable once built. Entries keep their configured order and
// category ids are assigned to labels in first-seen order over that order.
type Palette struct {
	entries    []Entry
	categories []Category
	byLabel    map[string]int
}

// New parses specs into a palette. A malformed color, an empty label or a
// color listed twice is a configuration error.
func New(specs []Spec) (*Palette, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("palette is empty")
	}

	p := &Palette{
		entries: make([]Entry, 0, len(specs)),
		byLabel: make(map[string]int),
	}
	seen := make(map[colorutil.RGB]string)

	for i, s := range specs {
		c, err := colorutil.ParseRGB(s.Color)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		if s.Label == "" {
			return nil, fmt.Errorf("palette entry %d (%s): empty label", i, c)
		}
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("palette entry %d: color %s already mapped to %q", i, c, prev)
		}
		seen[c] = s.Label

		id, ok := p.byLabel[s.Label]
		if !ok {
			id = len(p.categories) + 1
			p.byLabel[s.Label] = id
			p.categories = append(p.categories, Category{ID: id, Name: s.Label})
		}
		p.entries = append(p.entries, Entry{Color: c, Label: s.Label, CategoryID: id})
	}

	return p, nil
}

// MustNew is New for fixed tables known to be valid.
func MustNew(specs []Spec) *Palette {
	p, err := New(specs)
	if err != nil {
		panic(err)
	}
	return p
}

// Entries returns a copy of the entries in configured order.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Categories returns a copy of the categories in id order.
func (p *Palette) Categories() []Category {
	out := make([]Category, len(p.categories))
	copy(out, p.categories)
	return out
}

// CategoryID returns the id of a label.
func (p *Palette) CategoryID(label string) (int, bool) {
	id, ok := p.byLabel[label]
	return id, ok
}

// Lookup returns the entry for an exact color.
func (p *Palette) Lookup(c colorutil.RGB) (Entry, bool) {
	for _, e := range p.entries {
		if e.Color.Equal(c) {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of colors.
func (p *Palette) Len() int {
	return len(p.entries)
}

// Fingerprint identifies the palette contents, order included.
func (p *Palette) Fingerprint() string {
	var b []byte
	for _, e := range p.entries {
		b = fmt.Appendf(b, "%s=%d;", e.Color, e.CategoryID)
	}
	return string(b)
}
