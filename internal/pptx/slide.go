package pptx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gnemet/slidetex/internal/deck"
)

// slideTree is the decoded shape tree of a slide or notes part.
type slideTree struct {
	show       *bool
	shapes     []deck.Shape
	paragraphs []deck.Paragraph
	pictures   []pictureRef
}

type pictureRef struct {
	name  string
	embed string
}

func (p *Presentation) parseSlide(partName string) (*deck.Slide, error) {
	rc, err := p.openPart(partName)
	if err != nil {
		return nil, err
	}
	tree, err := decodeSlideTree(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", partName, err)
	}

	rels, err := p.parseRelationships(partName)
	if err != nil {
		return nil, fmt.Errorf("relationships of %s: %w", partName, err)
	}

	slide := &deck.Slide{
		Show:       tree.show,
		Shapes:     tree.shapes,
		Paragraphs: tree.paragraphs,
	}
	for _, ref := range tree.pictures {
		slide.Pictures = append(slide.Pictures, p.newPicture(partName, rels, ref))
	}

	for _, rel := range rels {
		if rel.external() {
			continue
		}
		switch {
		case strings.HasSuffix(rel.Type, relTypeSlideLayout):
			layout, err := p.parseLayoutType(resolveTarget(partName, rel.Target))
			if err != nil {
				return nil, fmt.Errorf("layout of %s: %w", partName, err)
			}
			slide.Layout = layout
		case strings.HasSuffix(rel.Type, relTypeNotesSlide):
			// Notes are optional; a broken notes part does not break the slide.
			if notes, err := p.parseNotes(resolveTarget(partName, rel.Target)); err == nil {
				slide.Notes = notes
			}
		}
	}
	return slide, nil
}

// decodeSlideTree walks the slide XML once, collecting shapes, every
// paragraph in document order and picture references.
func decodeSlideTree(r io.Reader) (*slideTree, error) {
	tree := &slideTree{}
	dec := newDecoder(r)

	var shape *deck.Shape
	var para *deck.Paragraph
	var pic *pictureRef

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Space {
			case nsPresentationML:
				switch el.Name.Local {
				case "sld":
					if v, ok := attr(el, "show"); ok {
						if show, err := strconv.ParseBool(v); err == nil {
							tree.show = &show
						}
					}
				case "sp":
					shape = &deck.Shape{}
				case "pic":
					pic = &pictureRef{}
				case "cNvPr":
					name, _ := attr(el, "name")
					if pic != nil {
						pic.name = name
					} else if shape != nil && shape.Name == "" {
						shape.Name = name
					}
				case "ph":
					if shape != nil && pic == nil {
						shape.Placeholder, _ = attr(el, "type")
					}
				}

			case nsDrawingML:
				switch el.Name.Local {
				case "p":
					para = &deck.Paragraph{}
				case "pPr":
					if para != nil {
						if lvl, ok := attr(el, "lvl"); ok {
							para.Level = lvl
						}
					}
				case "t":
					if para != nil {
						var text string
						if err := dec.DecodeElement(&text, &el); err != nil {
							return nil, err
						}
						para.Runs = append(para.Runs, text)
					}
				case "blip":
					if pic != nil {
						for _, a := range el.Attr {
							if a.Name.Space == nsRelationships && a.Name.Local == "embed" {
								pic.embed = a.Value
							}
						}
					}
				}
			}

		case xml.EndElement:
			switch {
			case el.Name.Space == nsDrawingML && el.Name.Local == "p":
				if para != nil {
					tree.paragraphs = append(tree.paragraphs, *para)
					if shape != nil {
						shape.Paragraphs = append(shape.Paragraphs, *para)
					}
				}
				para = nil
			case el.Name.Space == nsPresentationML && el.Name.Local == "sp":
				if shape != nil {
					tree.shapes = append(tree.shapes, *shape)
				}
				shape = nil
			case el.Name.Space == nsPresentationML && el.Name.Local == "pic":
				if pic != nil {
					tree.pictures = append(tree.pictures, *pic)
				}
				pic = nil
			}
		}
	}
	return tree, nil
}

// parseLayoutType returns the type attribute of a slide layout part.
func (p *Presentation) parseLayoutType(partName string) (string, error) {
	rc, err := p.openPart(partName)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := newDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "sldLayout" {
			layout, _ := attr(el, "type")
			return layout, nil
		}
	}
}

// parseNotes extracts the speaker notes body text of a notes slide.
func (p *Presentation) parseNotes(partName string) (string, error) {
	rc, err := p.openPart(partName)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tree, err := decodeSlideTree(rc)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, sh := range tree.shapes {
		if sh.Placeholder != deck.PlaceholderBody {
			continue
		}
		for _, para := range sh.Paragraphs {
			lines = append(lines, para.Text())
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// picture resolves its image part lazily through the slide relationships.
type picture struct {
	pres        *Presentation
	name        string
	part        string
	contentType string
	err         error
}

func (p *Presentation) newPicture(source string, rels map[string]relationship, ref pictureRef) *picture {
	pic := &picture{pres: p, name: ref.name}
	rel, ok := rels[ref.embed]
	switch {
	case !ok:
		pic.err = fmt.Errorf("relationship %q: %w", ref.embed, deck.ErrNotFound)
	case rel.external():
		pic.err = fmt.Errorf("relationship %q links external image %s", ref.embed, rel.Target)
	default:
		pic.part = resolveTarget(source, rel.Target)
		pic.contentType = p.contentTypes.lookup(pic.part)
	}
	return pic
}

func (pic *picture) Name() string        { return pic.name }
func (pic *picture) ContentType() string { return pic.contentType }

// Open streams the image part.
func (pic *picture) Open() (io.ReadCloser, error) {
	if pic.err != nil {
		return nil, fmt.Errorf("picture %q: %w", pic.name, pic.err)
	}
	return pic.pres.openPart(pic.part)
}
