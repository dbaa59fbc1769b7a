package pptx

import (
	"encoding/xml"
	"io"
	"path"
	"strings"
)

type relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

func (r relationship) external() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// relsPath returns the relationships part for a source part.
// The empty source names the package itself.
func relsPath(source string) string {
	if source == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(source), "_rels", path.Base(source)+".rels")
}

// parseRelationships reads the relationships of a part. A part without a
// relationships part has none.
func (p *Presentation) parseRelationships(source string) (map[string]relationship, error) {
	rels := make(map[string]relationship)
	name := relsPath(source)
	if !p.hasPart(name) {
		return rels, nil
	}

	rc, err := p.openPart(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

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
		if !ok || el.Name.Local != "Relationship" {
			continue
		}
		var rel relationship
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "Id":
				rel.ID = a.Value
			case "Type":
				rel.Type = a.Value
			case "Target":
				rel.Target = a.Value
			case "TargetMode":
				rel.TargetMode = a.Value
			}
		}
		if rel.ID != "" {
			rels[rel.ID] = rel
		}
	}
	return rels, nil
}

type contentTypes struct {
	defaults  map[string]string
	overrides map[string]string
}

// lookup returns the content type of a part: an Override on the part name wins,
// otherwise the Default registered for its extension.
func (c *contentTypes) lookup(partName string) string {
	if c == nil {
		return ""
	}
	if ct, ok := c.overrides[strings.ToLower("/"+strings.TrimPrefix(partName, "/"))]; ok {
		return ct
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(partName), "."))
	return c.defaults[ext]
}

func (p *Presentation) parseContentTypes() (*contentTypes, error) {
	ct := &contentTypes{
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
	}
	if !p.hasPart("[Content_Types].xml") {
		return ct, nil
	}

	rc, err := p.openPart("[Content_Types].xml")
	if err != nil {
		return nil, err
	}
	defer rc.Close()

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
		if !ok {
			continue
		}
		contentType, _ := attr(el, "ContentType")
		switch el.Name.Local {
		case "Default":
			if ext, ok := attr(el, "Extension"); ok {
				ct.defaults[strings.ToLower(ext)] = contentType
			}
		case "Override":
			if part, ok := attr(el, "PartName"); ok {
				ct.overrides[strings.ToLower(part)] = contentType
			}
		}
	}
	return ct, nil
}
