package beamer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnemet/slidetex/internal/pptx/pptxtest"
)

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := pptxtest.WriteFile(t, dir, "talk.pptx",
		pptxtest.Slide{
			Title:   []string{"Intro"},
			Bullets: []pptxtest.Bullet{{Text: "Hello"}, {Level: 1, Text: "World"}},
			Images:  []pptxtest.Image{{Name: "Logo", Ext: "png", Data: []byte("png")}},
		},
		pptxtest.Slide{Title: []string{"Draft"}, Hidden: true, Images: []pptxtest.Image{{Name: "X", Ext: "jpeg", Data: []byte("j")}}},
		pptxtest.Slide{Title: []string{"Part II"}, SectionHeader: true},
		pptxtest.Slide{
			Title:  []string{"Photos"},
			Images: []pptxtest.Image{{Name: "Photo", Ext: "jpeg", Data: []byte("jpg")}, {Name: "Gone", Dangling: true}},
		},
	)
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(outDir, "talk.tex")

	res, err := ConvertFile(context.Background(), in, out, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("ConvertFile failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	tex := string(data)
	for _, want := range []string{
		"\\frametitle{Intro}",
		// The end of a slide closes one list only, even from a nested level.
		"\\item Hello\n\t\\begin{itemize}[<+->]\n\t\\item World\n\\end{itemize}\n",
		"{image1.png}",
		"\\section{Part II}",
		"{image2.jpg}",
	} {
		if !strings.Contains(tex, want) {
			t.Errorf("output missing %q:\n%s", want, tex)
		}
	}
	if strings.Contains(tex, "Draft") {
		t.Error("hidden slide converted")
	}

	for name, want := range map[string]string{"image1.png": "png", "image2.jpg": "jpg"} {
		got, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if res.Frames != 3 || res.Skipped != 1 || res.Sections != 1 || len(res.Failures) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestConvertFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tex")
	if _, err := ConvertFile(context.Background(), filepath.Join(dir, "none.pptx"), out, Options{Logger: quietLogger()}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output created for missing input")
	}
}
