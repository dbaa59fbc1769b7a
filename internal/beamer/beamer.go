// Package beamer converts a presentation deck into a LaTeX Beamer document.
//
// Each visible slide becomes a frame. Title placeholders give the frame
// title, body paragraphs become nested itemize lists, and embedded pictures
// are written next to the output as image<N>.<ext> and referenced from
// figure blocks. Slides using a section header layout also open a \section.
package beamer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gnemet/slidetex/internal/deck"
)

// FooterArtifact is the institutional footer text that leaks into body
// placeholders of some templates. Items containing it are dropped.
const FooterArtifact = "Confidential - Internal use only"

const (
	beginItemize = `\begin{itemize}[<+->]`
	endItemize   = `\end{itemize}`
)

// DefaultFilter keeps every item that does not contain FooterArtifact.
func DefaultFilter(text string) bool {
	return !strings.Contains(text, FooterArtifact)
}

// Titler proposes a title for a slide that has no title placeholder.
type Titler interface {
	SuggestTitle(ctx context.Context, text string) (string, error)
}

// Options configures a Converter.
type Options struct {
	// IncludeHidden converts slides marked as not shown.
	IncludeHidden bool

	// Filter reports whether a bullet item is emitted. Nil means DefaultFilter.
	Filter func(text string) bool

	// Images receives the extracted pictures. Nil means a DirStore on ".".
	Images ImageStore

	// Titler, when set, is asked for a title for slides without one.
	Titler Titler

	// Notes emits speaker notes as \note{} blocks.
	Notes bool

	// Escape normalizes text and escapes LaTeX special characters.
	Escape bool

	// TranscodeBitmaps re-encodes pictures that would be written as .bmp to PNG.
	TranscodeBitmaps bool

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Filter == nil {
		o.Filter = DefaultFilter
	}
	if o.Images == nil {
		o.Images = DirStore{Dir: "."}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Result summarizes a conversion.
type Result struct {
	Slides   int              `json:"slides"`
	Frames   int              `json:"frames"`
	Sections int              `json:"sections"`
	Skipped  int              `json:"skipped"`
	Items    int              `json:"items"`
	Filtered int              `json:"filtered"`
	Images   []string         `json:"images"`
	Failures []PictureFailure `json:"failures,omitempty"`
	Reports  []SlideReport    `json:"-"`
}

// SlideReport describes one converted slide.
type SlideReport struct {
	Number  int
	Title   string
	Section bool
	Items   int
	Images  []string
}

// PictureFailure records a picture that could not be extracted.
type PictureFailure struct {
	Slide   int    `json:"slide"`
	Picture string `json:"picture"`
	Image   string `json:"image,omitempty"`
	Err     string `json:"error"`
}

// Converter emits Beamer markup for a deck.
type Converter struct {
	opts Options
	log  *slog.Logger
}

// New returns a Converter for opts.
func New(opts Options) *Converter {
	opts.defaults()
	return &Converter{opts: opts, log: opts.Logger}
}

// Convert writes the Beamer markup for doc to w. Picture failures are
// reported in the result and do not stop the conversion; write failures do.
func (c *Converter) Convert(ctx context.Context, doc deck.Document, w io.Writer) (*Result, error) {
	slides := doc.Slides()
	res := &Result{Slides: deck.CountVisible(slides, c.opts.IncludeHidden)}
	c.log.Info("converting presentation", "slides", res.Slides, "total", len(slides))

	r := &run{c: c, out: bufio.NewWriter(w), res: res}
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if s.Hidden() && !c.opts.IncludeHidden {
			c.log.Debug("skipping hidden slide", "slide", s.Number)
			res.Skipped++
			continue
		}
		r.slide(ctx, s)
	}

	if err := r.out.Flush(); err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}
	return res, nil
}

// SlideTitle joins the paragraphs of every title placeholder with newlines.
func SlideTitle(s *deck.Slide) string {
	var b strings.Builder
	sep := ""
	for _, sh := range s.Shapes {
		if !sh.IsTitle() {
			continue
		}
		for _, p := range sh.Paragraphs {
			b.WriteString(sep)
			b.WriteString(p.Text())
			sep = "\n"
		}
	}
	return b.String()
}

// run holds the state of one Convert call. The image counter is global to
// the document.
type run struct {
	c       *Converter
	out     *bufio.Writer
	res     *Result
	counter int
}

func (r *run) line(indent int, s string) {
	if indent > 0 {
		r.out.WriteString(strings.Repeat("\t", indent))
	}
	r.out.WriteString(s)
	r.out.WriteByte('\n')
}

func (r *run) text(s string) string {
	if r.c.opts.Escape {
		return Escape(s)
	}
	return s
}

func (r *run) slide(ctx context.Context, s *deck.Slide) {
	title := r.title(ctx, s)
	report := SlideReport{Number: s.Number, Title: title}

	if s.IsSectionHeader() {
		r.line(0, `\section{`+r.text(title)+`}`)
		r.line(0, "")
		report.Section = true
		r.res.Sections++
	}

	r.line(0, "")
	r.line(0, `\begin{frame}`)
	r.line(0, `\frametitle{`+r.text(title)+`}`)
	r.line(0, "")

	report.Items = r.bullets(s.Paragraphs)
	report.Images = r.pictures(s)

	if r.c.opts.Notes && s.Notes != "" {
		r.line(0, `\note{`)
		r.line(0, RenderNotes(s.Notes))
		r.line(0, `}`)
	}

	r.line(0, `\end{frame}`)
	r.res.Frames++
	r.res.Reports = append(r.res.Reports, report)
}

func (r *run) title(ctx context.Context, s *deck.Slide) string {
	title := SlideTitle(s)
	if title != "" || r.c.opts.Titler == nil {
		return title
	}

	var body []string
	for _, p := range s.Paragraphs {
		if t := p.Text(); t != "" {
			body = append(body, t)
		}
	}
	if len(body) == 0 {
		return title
	}
	suggested, err := r.c.opts.Titler.SuggestTitle(ctx, strings.Join(body, "\n"))
	if err != nil {
		r.c.log.Warn("title suggestion failed", "slide", s.Number, "error", err)
		return title
	}
	return strings.TrimSpace(suggested)
}

// bullets emits the body paragraphs. The first paragraph of the slide is the
// title placeholder and is never repeated as an item.
func (r *run) bullets(paras []deck.Paragraph) int {
	if len(paras) > 0 {
		paras = paras[1:]
	}

	items := 0
	var list itemize
	for _, p := range paras {
		text := p.Text()
		if text == "" {
			continue
		}
		level := p.IndentLevel()

		var lines []listLine
		list, lines = list.step(level)
		r.lines(lines)

		if !r.c.opts.Filter(text) {
			r.res.Filtered++
			continue
		}
		r.line(level, `\item `+r.text(text))
		items++
	}
	r.lines(list.finish())
	r.res.Items += items
	return items
}

func (r *run) lines(lines []listLine) {
	for _, l := range lines {
		r.line(l.indent, l.text)
	}
}

// itemize is the list nesting state of one frame: either no list is open,
// or a list is open and prev is the level of the last emitted paragraph.
type itemize struct {
	open bool
	prev int
}

type listLine struct {
	indent int
	text   string
}

// step moves the list to level and returns the markup that must precede the
// item. Nesting changes by at most one level per step.
func (l itemize) step(level int) (itemize, []listLine) {
	var lines []listLine
	if !l.open {
		lines = append(lines, listLine{level, beginItemize})
		l.open = true
	}
	switch {
	case l.prev > level:
		lines = append(lines, listLine{level + 1, endItemize})
	case l.prev < level:
		lines = append(lines, listLine{level, beginItemize})
	}
	l.prev = level
	return l, lines
}

// finish closes the outer list if one was opened.
func (l itemize) finish() []listLine {
	if !l.open {
		return nil
	}
	return []listLine{{0, endItemize}}
}
