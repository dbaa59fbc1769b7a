// Package observer converts decks dropped into a stage directory.
package observer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnemet/slidetex/internal/ai"
	"github.com/gnemet/slidetex/internal/beamer"
	"github.com/gnemet/slidetex/internal/config"
	"github.com/gnemet/slidetex/internal/database"
)

// DefaultDebounce is how long the observer waits after a file event before
// converting, so that copies in progress can complete.
const DefaultDebounce = 2 * time.Second

type Observer struct {
	cfg         *config.Config
	db          *database.DB
	aiClient    *ai.Client
	logger      *slog.Logger
	activeTasks int
	mu          sync.Mutex
	LogChan     chan string
	Debounce    time.Duration
}

// NewObserver returns an observer. db and aiClient may be nil.
func NewObserver(cfg *config.Config, db *database.DB, aiClient *ai.Client, logger *slog.Logger, logChan chan string) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		cfg:      cfg,
		db:       db,
		aiClient: aiClient,
		logger:   logger,
		LogChan:  logChan,
		Debounce: DefaultDebounce,
	}
}

func (o *Observer) log(level slog.Level, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	o.logger.Log(context.Background(), level, msg)
	if o.LogChan != nil {
		select {
		case o.LogChan <- msg:
		default:
			// fast non-blocking drop if buffer full
		}
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

// Start converts every deck already in the stage directory and then every
// deck created or written there, until ctx is done.
func (o *Observer) Start(ctx context.Context) error {
	stageDir := o.cfg.Watch.Stage
	if stageDir == "" {
		return errors.New("stage directory not configured")
	}
	for _, dir := range []string{stageDir, o.cfg.Watch.Output, o.cfg.Watch.Done} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(stageDir); err != nil {
		return err
	}

	o.log(slog.LevelInfo, "Observer started, watching: %s", stageDir)

	// Initial scan
	o.scanDirectory(ctx, stageDir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isDeck(event.Name) {
				o.log(slog.LevelDebug, "Detected change in: %s", event.Name)

				select {
				case <-time.After(o.Debounce):
				case <-ctx.Done():
					return nil
				}
				o.processFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log(slog.LevelWarn, "Watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func isDeck(name string) bool {
	base := filepath.Base(name)
	// Office lock files look like "~$deck.pptx".
	return strings.HasSuffix(strings.ToLower(base), ".pptx") && !strings.HasPrefix(base, "~$")
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		o.log(slog.LevelWarn, "Failed to scan directory: %v", err)
		return
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if !f.IsDir() && isDeck(f.Name()) {
			o.processFile(ctx, filepath.Join(dir, f.Name()))
		}
	}
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (o *Observer) options() beamer.Options {
	opts := beamer.Options{
		IncludeHidden:    o.cfg.Convert.IncludeHidden,
		Notes:            o.cfg.Convert.Notes,
		Escape:           o.cfg.Convert.Escape,
		TranscodeBitmaps: o.cfg.Convert.TranscodeBitmaps,
		Logger:           o.logger,
	}
	if o.aiClient != nil {
		opts.Titler = o.aiClient
	}
	return opts
}

// processFile converts one deck into <output>/<name>/<name>.tex. Files that
// fail to convert stay in the stage directory.
func (o *Observer) processFile(ctx context.Context, path string) {
	o.incrementTask()
	defer o.decrementTask()

	filename := filepath.Base(path)
	o.log(slog.LevelInfo, "Processing file: %s", filename)

	checksum, err := fileChecksum(path)
	if err != nil {
		o.log(slog.LevelWarn, "Failed to read file for checksum %s: %v", filename, err)
		return
	}

	// Check for an earlier conversion by checksum
	if o.db != nil {
		prev, err := database.GetConversionByChecksum(ctx, o.db, checksum)
		switch {
		case err == nil:
			o.log(slog.LevelInfo, "File %s (checksum: %s) already converted (ID: %s). Skipping duplicate processing.", filename, checksum, prev.ID)
			o.finalizeFile(path, filename)
			return
		case !errors.Is(err, database.ErrNoRows):
			o.log(slog.LevelWarn, "DB error checking existing file: %v", err)
			return
		}
	}

	cleanFilename := strings.TrimSuffix(filename, filepath.Ext(filename))
	outDir := filepath.Join(o.cfg.Watch.Output, cleanFilename)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		o.log(slog.LevelWarn, "Failed to create output directory %s: %v", outDir, err)
		return
	}
	outPath := filepath.Join(outDir, cleanFilename+".tex")

	conv := &database.Conversion{
		Filename:   filename,
		SourcePath: path,
		OutputPath: outPath,
		Checksum:   checksum,
		Status:     database.StatusDone,
	}

	res, err := beamer.ConvertFile(ctx, path, outPath, o.options())
	if err != nil {
		o.log(slog.LevelError, "Failed to convert %s: %v", filename, err)
		conv.Status = database.StatusFailed
		conv.Error = err.Error()
		o.record(ctx, conv, nil)
		return
	}

	conv.Slides = res.Slides
	conv.Frames = res.Frames
	conv.Sections = res.Sections
	conv.Skipped = res.Skipped
	conv.Images = len(res.Images)
	conv.Failures = len(res.Failures)
	o.record(ctx, conv, res.Reports)

	o.log(slog.LevelInfo, "Successfully converted: %s (%d frames, %d images, %d picture failures)",
		filename, res.Frames, len(res.Images), len(res.Failures))

	o.finalizeFile(path, filename)
}

// record persists a conversion with its slide reports and AI usage.
func (o *Observer) record(ctx context.Context, conv *database.Conversion, reports []beamer.SlideReport) {
	if o.db == nil {
		return
	}
	if err := database.SaveConversion(ctx, o.db, conv); err != nil {
		o.log(slog.LevelWarn, "Failed to save conversion to DB: %v", err)
		return
	}

	slides := make([]database.ConvertedSlide, 0, len(reports))
	for _, r := range reports {
		slides = append(slides, database.ConvertedSlide{
			ConversionID: conv.ID,
			SlideNum:     r.Number,
			Title:        r.Title,
			Section:      r.Section,
			Items:        r.Items,
			Images:       r.Images,
		})
	}
	if err := database.SaveSlides(ctx, o.db, slides); err != nil {
		o.log(slog.LevelWarn, "Failed to save slides of %s: %v", conv.Filename, err)
	}

	if o.aiClient == nil {
		return
	}
	if u := o.aiClient.DrainUsage(); u.Calls > 0 {
		err := database.LogAIUsage(ctx, o.db, &database.AIUsage{
			ConversionID:     conv.ID,
			Provider:         o.aiClient.Provider(),
			Model:            o.aiClient.Model(),
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		})
		if err != nil {
			o.log(slog.LevelWarn, "Failed to log AI usage: %v", err)
		}
	}
}

// finalizeFile moves a handled deck into the done directory.
func (o *Observer) finalizeFile(path, filename string) {
	if o.cfg.Watch.Done == "" {
		return
	}

	newPath := filepath.Join(o.cfg.Watch.Done, filename)

	// If path is already newPath, we are done
	if path == newPath {
		return
	}

	if err := os.Rename(path, newPath); err != nil {
		o.log(slog.LevelWarn, "Failed to move %s to done folder: %v", filename, err)
		return
	}
	o.log(slog.LevelInfo, "Moved %s to %s", filename, newPath)
}

// ReprocessAll clears the conversion history, moves every finished deck back
// to the stage directory and converts the stage again.
func (o *Observer) ReprocessAll(ctx context.Context) {
	o.incrementTask()
	defer o.decrementTask()

	o.log(slog.LevelInfo, "Starting full reprocess: resetting state")

	// 1. Clear database
	if o.db != nil {
		if err := database.ClearDatabase(ctx, o.db); err != nil {
			o.log(slog.LevelError, "Failed to clear database during reprocess: %v", err)
			return
		}
	}

	stageDir := o.cfg.Watch.Stage
	doneDir := o.cfg.Watch.Done

	// 2. Move files from done back to stage
	if doneDir != "" && stageDir != "" {
		files, err := os.ReadDir(doneDir)
		if err == nil {
			for _, file := range files {
				if !file.IsDir() && isDeck(file.Name()) {
					oldPath := filepath.Join(doneDir, file.Name())
					newPath := filepath.Join(stageDir, file.Name())
					if err := os.Rename(oldPath, newPath); err != nil {
						o.log(slog.LevelWarn, "Failed to move %s back to stage: %v", file.Name(), err)
					} else {
						o.log(slog.LevelDebug, "Moved %s back to stage for reprocessing", file.Name())
					}
				}
			}
		}
	}

	// 3. Trigger scan
	o.log(slog.LevelInfo, "Retriggering full scan of %s", stageDir)
	o.scanDirectory(ctx, stageDir)
}

func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}
