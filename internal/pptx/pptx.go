// Package pptx reads PowerPoint Open XML packages into the deck model.
package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/gnemet/slidetex/internal/deck"
	"golang.org/x/net/html/charset"
)

const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypeOfficeDocument = "/officeDocument"
	relTypeSlideLayout    = "/slideLayout"
	relTypeNotesSlide     = "/notesSlide"

	defaultPresentationPart = "ppt/presentation.xml"
)

// Presentation is an opened .pptx package. It implements deck.Document.
type Presentation struct {
	zr           *zip.ReadCloser
	files        map[string]*zip.File
	folded       map[string]*zip.File
	contentTypes *contentTypes
	slides       []*deck.Slide
}

// Open opens a .pptx file and parses every slide listed in the presentation.
// The package stays open until Close so that pictures can be streamed lazily.
func Open(pptxPath string) (*Presentation, error) {
	zr, err := zip.OpenReader(pptxPath)
	if err != nil {
		return nil, fmt.Errorf("open package %s: %w", pptxPath, err)
	}

	p := &Presentation{
		zr:     zr,
		files:  make(map[string]*zip.File, len(zr.File)),
		folded: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		p.files[f.Name] = f
		p.folded[strings.ToLower(f.Name)] = f
	}

	if err := p.load(); err != nil {
		zr.Close()
		return nil, fmt.Errorf("read package %s: %w", pptxPath, err)
	}
	return p, nil
}

// Slides returns the slides in presentation order.
func (p *Presentation) Slides() []*deck.Slide {
	return p.slides
}

// Close releases the underlying archive.
func (p *Presentation) Close() error {
	if p.zr == nil {
		return nil
	}
	err := p.zr.Close()
	p.zr = nil
	return err
}

func (p *Presentation) load() error {
	ct, err := p.parseContentTypes()
	if err != nil {
		return fmt.Errorf("content types: %w", err)
	}
	p.contentTypes = ct

	presPart := p.presentationPart()
	ids, err := p.parseSlideIDs(presPart)
	if err != nil {
		return fmt.Errorf("presentation: %w", err)
	}

	presRels, err := p.parseRelationships(presPart)
	if err != nil {
		return fmt.Errorf("presentation relationships: %w", err)
	}

	for i, id := range ids {
		rel, ok := presRels[id.relID]
		if !ok {
			return fmt.Errorf("slide %d: relationship %s: %w", id.id, id.relID, deck.ErrNotFound)
		}
		slide, err := p.parseSlide(resolveTarget(presPart, rel.Target))
		if err != nil {
			return fmt.Errorf("slide %d: %w", id.id, err)
		}
		slide.ID = id.id
		slide.RelID = id.relID
		slide.Number = i + 1
		p.slides = append(p.slides, slide)
	}
	return nil
}

// presentationPart locates the main part through the package relationships,
// falling back to the conventional location.
func (p *Presentation) presentationPart() string {
	rels, err := p.parseRelationships("")
	if err != nil {
		return defaultPresentationPart
	}
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, relTypeOfficeDocument) {
			return resolveTarget("", rel.Target)
		}
	}
	return defaultPresentationPart
}

type slideID struct {
	id    uint32
	relID string
}

func (p *Presentation) parseSlideIDs(partName string) ([]slideID, error) {
	rc, err := p.openPart(partName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var ids []slideID
	dec := newDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "sldId" {
			continue
		}
		var sid slideID
		for _, a := range el.Attr {
			switch {
			case a.Name.Space == nsRelationships && a.Name.Local == "id":
				sid.relID = a.Value
			case a.Name.Space == "" && a.Name.Local == "id":
				if n, err := strconv.ParseUint(a.Value, 10, 32); err == nil {
					sid.id = uint32(n)
				}
			}
		}
		if sid.relID != "" {
			ids = append(ids, sid)
		}
	}
	return ids, nil
}

// openPart opens a package part by name. Lookup falls back to a
// case-insensitive match since part names are case-insensitive.
func (p *Presentation) openPart(name string) (io.ReadCloser, error) {
	if p.zr == nil {
		return nil, fmt.Errorf("part %s: package closed", name)
	}
	f, ok := p.files[name]
	if !ok {
		f, ok = p.folded[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("part %s: %w", name, deck.ErrNotFound)
	}
	return f.Open()
}

func (p *Presentation) hasPart(name string) bool {
	if _, ok := p.files[name]; ok {
		return true
	}
	_, ok := p.folded[strings.ToLower(name)]
	return ok
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// resolveTarget resolves a relationship target against the part that owns it.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

func attr(el xml.StartElement, local string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}
