package beamer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnemet/slidetex/internal/deck"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageStore persists extracted pictures under a file name.
type ImageStore interface {
	Put(name string, r io.Reader) error
}

// DirStore writes pictures into a directory.
type DirStore struct {
	Dir string
}

// Put writes r to Dir/name. A partially written file is removed.
func (s DirStore) Put(name string, r io.Reader) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	p := filepath.Join(s.Dir, name)
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// ImageExtension maps a content type to the extension used for the image file.
// Anything that is neither JPEG nor PNG falls back to bmp.
func ImageExtension(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return "jpg"
	case strings.Contains(ct, "png"):
		return "png"
	default:
		return "bmp"
	}
}

// FigureLines returns the centered figure block referencing name at half text width.
func FigureLines(name string) []string {
	return []string{
		`\begin{figure}`,
		`\centering`,
		`\includegraphics[width=0.5\textwidth]{` + name + `}`,
		`\end{figure}`,
	}
}

// pictures extracts the slide pictures in order and returns the file names written.
func (r *run) pictures(s *deck.Slide) []string {
	var names []string
	for _, pic := range s.Pictures {
		name, err := r.picture(pic)
		if err != nil {
			r.c.log.Warn("picture extraction failed", "slide", s.Number, "picture", pic.Name(), "image", name, "error", err)
			r.res.Failures = append(r.res.Failures, PictureFailure{
				Slide:   s.Number,
				Picture: pic.Name(),
				Image:   name,
				Err:     err.Error(),
			})
			continue
		}
		names = append(names, name)
	}
	return names
}

// picture handles one picture. A stream that cannot be opened consumes no
// image number; once the figure is emitted the number stays taken even if
// the file cannot be written, and a LaTeX comment marks the missing file.
func (r *run) picture(pic deck.Picture) (string, error) {
	rc, err := pic.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	ext := ImageExtension(pic.ContentType())
	var data io.Reader = rc
	if ext == "bmp" && r.c.opts.TranscodeBitmaps {
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read picture: %w", err)
		}
		data = bytes.NewReader(raw)
		if encoded, err := transcodePNG(raw); err == nil {
			ext, data = "png", bytes.NewReader(encoded)
		} else {
			r.c.log.Debug("keeping picture as bitmap", "picture", pic.Name(), "error", err)
		}
	}

	r.counter++
	name := fmt.Sprintf("image%d.%s", r.counter, ext)
	for _, l := range FigureLines(name) {
		r.line(0, l)
	}

	if err := r.c.opts.Images.Put(name, data); err != nil {
		r.line(0, "% "+name+" could not be extracted")
		return name, err
	}
	r.res.Images = append(r.res.Images, name)
	return name, nil
}

// transcodePNG decodes a bmp, tiff, webp or gif image and encodes it as PNG.
func transcodePNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
