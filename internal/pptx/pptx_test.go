package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnemet/slidetex/internal/deck"
	"github.com/gnemet/slidetex/internal/pptx/pptxtest"
)

func openDeck(t *testing.T, slides ...pptxtest.Slide) *Presentation {
	t.Helper()
	path := pptxtest.WriteFile(t, t.TempDir(), "deck.pptx", slides...)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestOpenSlidesInOrder(t *testing.T) {
	p := openDeck(t,
		pptxtest.Slide{Title: []string{"First"}},
		pptxtest.Slide{Title: []string{"Second"}},
		pptxtest.Slide{Title: []string{"Third"}},
	)

	slides := p.Slides()
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		s := slides[i]
		if s.Number != i+1 {
			t.Errorf("slide %d: Number = %d", i, s.Number)
		}
		if s.ID != uint32(256+i) {
			t.Errorf("slide %d: ID = %d", i, s.ID)
		}
		if s.RelID == "" {
			t.Errorf("slide %d: empty RelID", i)
		}
		if len(s.Paragraphs) == 0 || s.Paragraphs[0].Text() != want {
			t.Errorf("slide %d: first paragraph = %+v, want %q", i, s.Paragraphs, want)
		}
	}
}

func TestSlideParagraphsAndLevels(t *testing.T) {
	p := openDeck(t, pptxtest.Slide{
		Title: []string{"Agenda"},
		Bullets: []pptxtest.Bullet{
			{Text: "Intro"},
			{Level: 1, Text: "Detail"},
			{RawLevel: "bogus", Text: "Broken level"},
			{Text: ""},
		},
	})

	s := p.Slides()[0]
	if len(s.Paragraphs) != 5 {
		t.Fatalf("expected 5 paragraphs (title + 4 body), got %d", len(s.Paragraphs))
	}
	tests := []struct {
		text  string
		level int
	}{
		{"Agenda", 0},
		{"Intro", 0},
		{"Detail", 1},
		{"Broken level", 0},
		{"", 0},
	}
	for i, tt := range tests {
		para := s.Paragraphs[i]
		if para.Text() != tt.text {
			t.Errorf("paragraph %d text = %q, want %q", i, para.Text(), tt.text)
		}
		if para.IndentLevel() != tt.level {
			t.Errorf("paragraph %d level = %d, want %d", i, para.IndentLevel(), tt.level)
		}
	}
	if s.Paragraphs[3].Level != "bogus" {
		t.Errorf("raw level not kept: %q", s.Paragraphs[3].Level)
	}
}

func TestSlideShapesAndPlaceholders(t *testing.T) {
	p := openDeck(t,
		pptxtest.Slide{Title: []string{"Foo", "Bar"}, Bullets: []pptxtest.Bullet{{Text: "x"}}},
		pptxtest.Slide{Title: []string{"Cover"}, CenteredTitle: true},
	)

	s := p.Slides()[0]
	if len(s.Shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(s.Shapes))
	}
	if !s.Shapes[0].IsTitle() || s.Shapes[0].Name != "Title 1" {
		t.Errorf("first shape = %+v, want title", s.Shapes[0])
	}
	if len(s.Shapes[0].Paragraphs) != 2 {
		t.Errorf("title paragraphs = %d, want 2", len(s.Shapes[0].Paragraphs))
	}
	if s.Shapes[1].IsTitle() {
		t.Error("body shape classified as title")
	}

	cover := p.Slides()[1]
	if cover.Shapes[0].Placeholder != deck.PlaceholderCenteredTitle || !cover.Shapes[0].IsTitle() {
		t.Errorf("centered title not detected: %+v", cover.Shapes[0])
	}
}

func TestSlideVisibilityAndLayout(t *testing.T) {
	p := openDeck(t,
		pptxtest.Slide{Title: []string{"Shown"}},
		pptxtest.Slide{Title: []string{"Hidden"}, Hidden: true},
		pptxtest.Slide{Title: []string{"Part II"}, SectionHeader: true},
	)

	slides := p.Slides()
	if slides[0].Hidden() || slides[0].Show != nil {
		t.Errorf("slide 1 should carry no show attribute")
	}
	if !slides[1].Hidden() {
		t.Error("slide 2 should be hidden")
	}
	if slides[0].IsSectionHeader() {
		t.Errorf("slide 1 layout = %q", slides[0].Layout)
	}
	if slides[0].Layout != deck.LayoutTitleContent {
		t.Errorf("slide 1 layout = %q, want obj", slides[0].Layout)
	}
	if !slides[2].IsSectionHeader() {
		t.Errorf("slide 3 layout = %q, want secHead", slides[2].Layout)
	}
}

func TestSlidePictures(t *testing.T) {
	p := openDeck(t, pptxtest.Slide{
		Title: []string{"Pics"},
		Images: []pptxtest.Image{
			{Name: "Photo", Ext: "jpeg", Data: []byte("jpeg-bytes")},
			{Name: "Chart", Ext: "png", Data: []byte("png-bytes")},
			{Name: "Ghost", Dangling: true},
		},
	})

	pics := p.Slides()[0].Pictures
	if len(pics) != 3 {
		t.Fatalf("expected 3 pictures, got %d", len(pics))
	}

	tests := []struct {
		name, contentType, data string
	}{
		{"Photo", "image/jpeg", "jpeg-bytes"},
		{"Chart", "image/png", "png-bytes"},
	}
	for i, tt := range tests {
		pic := pics[i]
		if pic.Name() != tt.name || pic.ContentType() != tt.contentType {
			t.Errorf("picture %d = %s (%s), want %s (%s)", i, pic.Name(), pic.ContentType(), tt.name, tt.contentType)
		}
		rc, err := pic.Open()
		if err != nil {
			t.Fatalf("picture %d Open: %v", i, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("picture %d read: %v", i, err)
		}
		if string(data) != tt.data {
			t.Errorf("picture %d data = %q, want %q", i, data, tt.data)
		}
	}

	if _, err := pics[2].Open(); !errors.Is(err, deck.ErrNotFound) {
		t.Errorf("dangling picture Open error = %v, want ErrNotFound", err)
	}
}

func TestSlideNotes(t *testing.T) {
	p := openDeck(t,
		pptxtest.Slide{Title: []string{"With notes"}, Notes: "Remember *this*\n- point"},
		pptxtest.Slide{Title: []string{"Without"}},
	)
	if got := p.Slides()[0].Notes; got != "Remember *this*\n- point" {
		t.Errorf("notes = %q", got)
	}
	if got := p.Slides()[1].Notes; got != "" {
		t.Errorf("unexpected notes %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(filepath.Join(dir, "missing.pptx")); err == nil {
		t.Error("expected error for missing file")
	}

	notZip := filepath.Join(dir, "plain.pptx")
	if err := os.WriteFile(notZip, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(notZip); err == nil {
		t.Error("expected error for non-zip file")
	}

	noPres := filepath.Join(dir, "empty.pptx")
	f, err := os.Create(noPres)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("docProps/app.xml")
	w.Write([]byte("<Properties/>"))
	zw.Close()
	f.Close()
	if _, err := Open(noPres); !errors.Is(err, deck.ErrNotFound) {
		t.Errorf("expected ErrNotFound for package without presentation, got %v", err)
	}
}

func TestClosedPackage(t *testing.T) {
	path := pptxtest.WriteFile(t, t.TempDir(), "deck.pptx", pptxtest.Slide{
		Title:  []string{"Pics"},
		Images: []pptxtest.Image{{Name: "A", Ext: "png", Data: []byte("x")}},
	})
	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	pic := p.Slides()[0].Pictures[0]
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := pic.Open(); err == nil {
		t.Error("expected error opening picture after Close")
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"ppt/presentation.xml", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "../media/image1.png", "ppt/media/image1.png"},
		{"ppt/slides/slide1.xml", "/ppt/media/image2.png", "ppt/media/image2.png"},
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestRelsPath(t *testing.T) {
	if got := relsPath(""); got != "_rels/.rels" {
		t.Errorf("relsPath(\"\") = %q", got)
	}
	if got := relsPath("ppt/slides/slide3.xml"); got != "ppt/slides/_rels/slide3.xml.rels" {
		t.Errorf("relsPath(slide3) = %q", got)
	}
}

func TestContentTypeLookup(t *testing.T) {
	ct := &contentTypes{
		defaults:  map[string]string{"png": "image/png"},
		overrides: map[string]string{"/ppt/media/image9.bin": "image/jpeg"},
	}
	if got := ct.lookup("ppt/media/image1.PNG"); got != "image/png" {
		t.Errorf("default lookup = %q", got)
	}
	if got := ct.lookup("ppt/media/image9.bin"); got != "image/jpeg" {
		t.Errorf("override lookup = %q", got)
	}
	if got := ct.lookup("ppt/media/x.wmf"); got != "" {
		t.Errorf("unknown lookup = %q", got)
	}
}

// replacePart rewrites one part of the package at path.
func replacePart(t *testing.T, path, name string, data []byte) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatal(err)
		}
		if f.Name == name {
			w.Write(data)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
	zr.Close()
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLatin1SlidePart(t *testing.T) {
	path := pptxtest.WriteFile(t, t.TempDir(), "latin1.pptx", pptxtest.Slide{Title: []string{"placeholder"}})

	// "Café" and "Señor" with é and ñ as single ISO-8859-1 bytes.
	latin1 := []byte(`<?xml version="1.0" encoding="ISO-8859-1" standalone="yes"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
		"<p:txBody><a:bodyPr/><a:p><a:r><a:t>Caf\xe9</a:t></a:r></a:p></p:txBody></p:sp>" +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content 2"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr>` +
		"<p:txBody><a:bodyPr/><a:p><a:r><a:t>Se\xf1or</a:t></a:r></a:p></p:txBody></p:sp>" +
		`</p:spTree></p:cSld></p:sld>`)
	replacePart(t, path, "ppt/slides/slide1.xml", latin1)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	s := p.Slides()[0]
	if len(s.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %+v", s.Paragraphs)
	}
	if got := s.Paragraphs[0].Text(); got != "Café" {
		t.Errorf("title = %q, want %q", got, "Café")
	}
	if got := s.Paragraphs[1].Text(); got != "Señor" {
		t.Errorf("body = %q, want %q", got, "Señor")
	}
	if !s.Shapes[0].IsTitle() {
		t.Errorf("title shape not classified: %+v", s.Shapes[0])
	}
}
