// Package pptxtest builds small .pptx packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Bullet is a body paragraph. RawLevel, when set, is written verbatim as the
// lvl attribute; otherwise Level is written when positive.
type Bullet struct {
	Level    int
	RawLevel string
	Text     string
}

// Image is an embedded picture. Dangling pictures reference a relationship
// that does not exist.
type Image struct {
	Name     string
	Ext      string
	Data     []byte
	Dangling bool
}

// Slide describes one slide of the generated deck.
type Slide struct {
	Title         []string
	CenteredTitle bool
	Bullets       []Bullet
	Images        []Image
	Hidden        bool
	SectionHeader bool
	Notes         string
}

var contentTypeByExt = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"emf":  "image/x-emf",
}

// WriteFile writes a deck to dir/name and returns its path.
func WriteFile(t testing.TB, dir, name string, slides ...Slide) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(t, slides...), 0644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// Build returns the bytes of a .pptx package containing slides.
func Build(t testing.TB, slides ...Slide) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	exts := map[string]bool{}
	for _, s := range slides {
		for _, img := range s.Images {
			if !img.Dangling {
				exts[strings.ToLower(img.Ext)] = true
			}
		}
	}
	write("[Content_Types].xml", contentTypes(exts, slides))

	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`)

	var ids, presRels strings.Builder
	for i := range slides {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, i+1)
	}
	write("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:sldIdLst>`+ids.String()+`</p:sldIdLst>
  <p:sldSz cx="9144000" cy="6858000"/>
</p:presentation>`)
	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+presRels.String()+`</Relationships>`)

	write("ppt/slideLayouts/slideLayout1.xml", layout("obj"))
	write("ppt/slideLayouts/slideLayout2.xml", layout("secHead"))

	media := 0
	for i, s := range slides {
		n := i + 1
		var rels strings.Builder
		layoutPart := "slideLayout1.xml"
		if s.SectionHeader {
			layoutPart = "slideLayout2.xml"
		}
		fmt.Fprintf(&rels, `<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/%s"/>`, layoutPart)

		var pics strings.Builder
		for j, img := range s.Images {
			relID := fmt.Sprintf("rId%d", 10+j)
			if img.Dangling {
				relID = fmt.Sprintf("rId%d", 900+j)
			} else {
				media++
				target := fmt.Sprintf("media/image%d.%s", media, img.Ext)
				write("ppt/"+target, string(img.Data))
				fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../%s"/>`, relID, target)
			}
			fmt.Fprintf(&pics, `
      <p:pic>
        <p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>
        <p:blipFill><a:blip r:embed="%s"/></p:blipFill>
        <p:spPr/>
      </p:pic>`, 20+j, esc(img.Name), relID)
		}

		if s.Notes != "" {
			fmt.Fprintf(&rels, `<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, n)
			write(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), notesSlide(s.Notes))
		}

		write(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(s, pics.String()))
		write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func contentTypes(exts map[string]bool, slides []Slide) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>`)
	sorted := make([]string, 0, len(exts))
	for ext := range exts {
		sorted = append(sorted, ext)
	}
	sort.Strings(sorted)
	for _, ext := range sorted {
		ct, ok := contentTypeByExt[ext]
		if !ok {
			ct = "application/octet-stream"
		}
		fmt.Fprintf(&b, `
  <Default Extension="%s" ContentType="%s"/>`, ext, ct)
	}
	b.WriteString(`
  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	for i := range slides {
		fmt.Fprintf(&b, `
  <Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	b.WriteString(`
</Types>`)
	return b.String()
}

func layout(kind string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="` + kind + `" preserve="1">
  <p:cSld><p:spTree/></p:cSld>
</p:sldLayout>`
}

func slideXML(s Slide, pics string) string {
	show := ""
	if s.Hidden {
		show = ` show="0"`
	}
	titleType := "title"
	if s.CenteredTitle {
		titleType = "ctrTitle"
	}

	var title strings.Builder
	for _, line := range s.Title {
		fmt.Fprintf(&title, `<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, esc(line))
	}

	var body strings.Builder
	for _, b := range s.Bullets {
		lvl := b.RawLevel
		if lvl == "" && b.Level > 0 {
			lvl = fmt.Sprint(b.Level)
		}
		ppr := ""
		if lvl != "" {
			ppr = `<a:pPr lvl="` + esc(lvl) + `"/>`
		}
		text := ""
		if b.Text != "" {
			text = `<a:r><a:rPr lang="en-US"/><a:t>` + esc(b.Text) + `</a:t></a:r>`
		}
		fmt.Fprintf(&body, `<a:p>%s%s</a:p>`, ppr, text)
	}

	var shapes strings.Builder
	if len(s.Title) > 0 {
		fmt.Fprintf(&shapes, `
      <p:sp>
        <p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="%s"/></p:nvPr></p:nvSpPr>
        <p:spPr/>
        <p:txBody><a:bodyPr/>%s</p:txBody>
      </p:sp>`, titleType, title.String())
	}
	if len(s.Bullets) > 0 {
		fmt.Fprintf(&shapes, `
      <p:sp>
        <p:nvSpPr><p:cNvPr id="3" name="Content 2"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr>
        <p:spPr/>
        <p:txBody><a:bodyPr/>%s</p:txBody>
      </p:sp>`, body.String())
	}

	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` + show + `>
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
      <p:grpSpPr/>` + shapes.String() + pics + `
    </p:spTree>
  </p:cSld>
</p:sld>`
}

func notesSlide(notes string) string {
	var paras strings.Builder
	for _, line := range strings.Split(notes, "\n") {
		fmt.Fprintf(&paras, `<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, esc(line))
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
      <p:grpSpPr/>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="2" name="Slide Image 1"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr>
        <p:spPr/>
      </p:sp>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>
        <p:spPr/>
        <p:txBody><a:bodyPr/>` + paras.String() + `</p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:notes>`
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
