// Package deck holds the read-only presentation model consumed by the converter.
package deck

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a referenced package part or relationship does not exist.
var ErrNotFound = errors.New("not found")

// Layout kinds, as found in p:sldLayout/@type.
const (
	LayoutSectionHeader = "secHead"
	LayoutTitleContent  = "obj"
)

// Placeholder kinds, as found in p:ph/@type.
const (
	PlaceholderTitle         = "title"
	PlaceholderCenteredTitle = "ctrTitle"
	PlaceholderSubtitle      = "subTitle"
	PlaceholderBody          = "body"
)

// Document is an opened presentation.
type Document interface {
	Slides() []*Slide
	Close() error
}

// Picture is an embedded image whose data is resolved lazily.
type Picture interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Slide is one slide in presentation order.
type Slide struct {
	ID     uint32 `yaml:"id"`
	RelID  string `yaml:"rel_id"`
	Number int    `yaml:"number"`
	Layout string `yaml:"layout,omitempty"`

	// Show is nil when the slide carries no show attribute.
	Show *bool `yaml:"show,omitempty"`

	// Paragraphs lists every paragraph of the slide in document order,
	// title placeholder paragraphs included.
	Paragraphs []Paragraph `yaml:"paragraphs,omitempty"`
	Shapes     []Shape     `yaml:"shapes,omitempty"`
	Pictures   []Picture   `yaml:"-"`
	Notes      string      `yaml:"notes,omitempty"`
}

// Hidden reports whether the slide is explicitly marked as not shown.
func (s *Slide) Hidden() bool {
	return s.Show != nil && !*s.Show
}

// IsSectionHeader reports whether the slide uses a section header layout.
func (s *Slide) IsSectionHeader() bool {
	return s.Layout == LayoutSectionHeader
}

// Shape is a p:sp element with its placeholder kind and text.
type Shape struct {
	Name        string      `yaml:"name,omitempty"`
	Placeholder string      `yaml:"placeholder,omitempty"`
	Paragraphs  []Paragraph `yaml:"paragraphs,omitempty"`
}

// IsTitle reports whether the shape is a title or centered title placeholder.
func (s Shape) IsTitle() bool {
	return s.Placeholder == PlaceholderTitle || s.Placeholder == PlaceholderCenteredTitle
}

// Paragraph is an a:p element.
type Paragraph struct {
	// Level is the raw a:pPr/@lvl value, empty when absent.
	Level string   `yaml:"level,omitempty"`
	Runs  []string `yaml:"runs,omitempty"`
}

// Text concatenates the paragraph runs.
func (p Paragraph) Text() string {
	return strings.Join(p.Runs, "")
}

// IndentLevel returns the bullet nesting level, 0 when absent or malformed.
func (p Paragraph) IndentLevel() int {
	if p.Level == "" {
		return 0
	}
	lvl, err := strconv.Atoi(strings.TrimSpace(p.Level))
	if err != nil || lvl < 0 {
		return 0
	}
	return lvl
}

// CountVisible returns how many slides would be converted.
func CountVisible(slides []*Slide, includeHidden bool) int {
	if includeHidden {
		return len(slides)
	}
	n := 0
	for _, s := range slides {
		if !s.Hidden() {
			n++
		}
	}
	return n
}
