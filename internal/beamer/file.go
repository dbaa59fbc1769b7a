package beamer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gnemet/slidetex/internal/pptx"
)

// ConvertFile converts the .pptx at inPath into outPath. Pictures go to
// opts.Images, or next to outPath when unset. The source and destination are
// closed on every path.
func ConvertFile(ctx context.Context, inPath, outPath string, opts Options) (*Result, error) {
	doc, err := pptx.Open(inPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if opts.Images == nil {
		opts.Images = DirStore{Dir: filepath.Dir(outPath)}
	}

	res, err := New(opts).Convert(ctx, doc, f)
	if err != nil {
		return res, err
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("close output: %w", err)
	}
	return res, nil
}
