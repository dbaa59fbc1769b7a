package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoRows is returned when a lookup matches nothing.
var ErrNoRows = sql.ErrNoRows

const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

type Conversion struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SourcePath string    `json:"source_path"`
	OutputPath string    `json:"output_path"`
	Checksum   string    `json:"checksum"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Slides     int       `json:"slides"`
	Frames     int       `json:"frames"`
	Sections   int       `json:"sections"`
	Skipped    int       `json:"skipped"`
	Images     int       `json:"images"`
	Failures   int       `json:"failures"`
	CreatedAt  time.Time `json:"created_at"`
}

type ConvertedSlide struct {
	ConversionID string   `json:"conversion_id"`
	SlideNum     int      `json:"slide_number"`
	Title        string   `json:"title"`
	Section      bool     `json:"section"`
	Items        int      `json:"items"`
	Images       []string `json:"images"`
}

type AIUsage struct {
	ConversionID     string    `json:"conversion_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const conversionColumns = "id, filename, source_path, output_path, checksum, status, error, slides, frames, sections, skipped, images, failures, created_at"

// SaveConversion inserts c, assigning an ID and creation time when unset.
func SaveConversion(ctx context.Context, db *DB, c *Conversion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := db.Rebind(`
		INSERT INTO conversions (` + conversionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := db.ExecContext(ctx, query, c.ID, c.Filename, c.SourcePath, c.OutputPath, c.Checksum, c.Status, c.Error,
		c.Slides, c.Frames, c.Sections, c.Skipped, c.Images, c.Failures, c.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save conversion: %w", err)
	}
	return nil
}

// SaveSlides stores the per-slide report of a conversion in one transaction.
func SaveSlides(ctx context.Context, db *DB, slides []ConvertedSlide) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := db.Rebind(`
		INSERT INTO converted_slides (conversion_id, slide_number, title, section, items, images)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, s := range slides {
		section := 0
		if s.Section {
			section = 1
		}
		if _, err := tx.ExecContext(ctx, query, s.ConversionID, s.SlideNum, s.Title, section, s.Items, strings.Join(s.Images, ",")); err != nil {
			return fmt.Errorf("save slide %d: %w", s.SlideNum, err)
		}
	}
	return tx.Commit()
}

// GetConversionByChecksum returns the latest successful conversion of a file
// with the given checksum.
func GetConversionByChecksum(ctx context.Context, db *DB, checksum string) (*Conversion, error) {
	query := db.Rebind("SELECT " + conversionColumns + " FROM conversions WHERE checksum = ? AND status = ? ORDER BY created_at DESC LIMIT 1")
	return scanConversion(db.QueryRowContext(ctx, query, checksum, StatusDone))
}

func GetConversion(ctx context.Context, db *DB, id string) (*Conversion, error) {
	query := db.Rebind("SELECT " + conversionColumns + " FROM conversions WHERE id = ?")
	return scanConversion(db.QueryRowContext(ctx, query, id))
}

func GetAllConversions(ctx context.Context, db *DB) ([]Conversion, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+conversionColumns+" FROM conversions ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func GetSlidesByConversion(ctx context.Context, db *DB, id string) ([]ConvertedSlide, error) {
	query := db.Rebind("SELECT conversion_id, slide_number, title, section, items, images FROM converted_slides WHERE conversion_id = ? ORDER BY slide_number")
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []ConvertedSlide
	for rows.Next() {
		var s ConvertedSlide
		var section int
		var images string
		if err := rows.Scan(&s.ConversionID, &s.SlideNum, &s.Title, &section, &s.Items, &images); err != nil {
			return nil, err
		}
		s.Section = section != 0
		if images != "" {
			s.Images = strings.Split(images, ",")
		}
		slides = append(slides, s)
	}
	return slides, rows.Err()
}

func LogAIUsage(ctx context.Context, db *DB, u *AIUsage) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := db.Rebind(`
		INSERT INTO ai_usage (conversion_id, provider, model, prompt_tokens, completion_tokens, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := db.ExecContext(ctx, query, u.ConversionID, u.Provider, u.Model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.CreatedAt.UTC().Format(timeLayout))
	return err
}

func GetTotalAITokens(ctx context.Context, db *DB) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_tokens), 0) FROM ai_usage").Scan(&total)
	return total, err
}

func ClearDatabase(ctx context.Context, db *DB) error {
	for _, table := range []string{"converted_slides", "ai_usage", "conversions"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(row scanner) (*Conversion, error) {
	var c Conversion
	var created string
	err := row.Scan(&c.ID, &c.Filename, &c.SourcePath, &c.OutputPath, &c.Checksum, &c.Status, &c.Error,
		&c.Slides, &c.Frames, &c.Sections, &c.Skipped, &c.Images, &c.Failures, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("conversion %s: bad created_at %q: %w", c.ID, created, err)
	}
	return &c, nil
}
