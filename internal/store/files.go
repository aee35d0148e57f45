// Package store persists finished crawl runs: raw JSON and a CSV table on
// disk, and optionally a postgres mirror.
package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/config"
)

// Subdirectories of the output root.
const (
	RawDir       = "raw"
	ProcessedDir = "processed"
)

// TimestampLayout stamps raw file names.
const TimestampLayout = "20060102_150405"

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\s]`)
	underscores = regexp.MustCompile(`_+`)

	csvHeader = []string{"note_id", "title", "author", "author_id", "likes", "note_type", "note_url", "publish_time"}
	// utf8BOM lets spreadsheet tools detect the encoding of the CSV.
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// SafeName turns a keyword into a file name fragment.
func SafeName(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "_")
	safe = underscores.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "unnamed"
	}
	return safe
}

type rawFile struct {
	Keyword   string `json:"keyword"`
	CrawledAt string `json:"crawled_at"`
	Count     int    `json:"count"`
	Results   any    `json:"results"`
}

// Files writes runs under an output directory.
type Files struct {
	root    string
	saveRaw bool
	saveCSV bool
	log     *zap.Logger
}

// NewFiles creates a file store from cfg.
func NewFiles(cfg config.StorageConfig, logger *zap.Logger) *Files {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Files{
		root:    cfg.OutputDir,
		saveRaw: cfg.SaveRawJSON,
		saveCSV: cfg.SaveCSV,
		log:     logger.Named("store.files"),
	}
}

// Root returns the output directory.
func (f *Files) Root() string { return f.root }

// SaveAll writes the search results and details of run. A run without search
// results writes nothing.
func (f *Files) SaveAll(_ context.Context, run schemas.Run) error {
	if len(run.Summaries) == 0 {
		f.log.Warn("No results to save.", zap.String("keyword", run.Keyword))
		return nil
	}
	for _, dir := range []string{RawDir, ProcessedDir} {
		if err := os.MkdirAll(filepath.Join(f.root, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	safe := SafeName(run.Keyword)
	stamp := run.CrawledAt.Format(TimestampLayout)
	crawledAt := run.CrawledAt.Format(time.RFC3339)

	if f.saveRaw {
		path := filepath.Join(f.root, RawDir, fmt.Sprintf("%s_%s.json", safe, stamp))
		if err := writeJSON(path, rawFile{run.Keyword, crawledAt, len(run.Summaries), run.Summaries}); err != nil {
			return err
		}
		f.log.Info("Search results written.", zap.String("path", path), zap.Int("count", len(run.Summaries)))

		if len(run.Details) > 0 {
			path := filepath.Join(f.root, RawDir, fmt.Sprintf("notes_%s_%s.json", safe, stamp))
			if err := writeJSON(path, rawFile{run.Keyword, crawledAt, len(run.Details), run.Details}); err != nil {
				return err
			}
			f.log.Info("Note details written.", zap.String("path", path), zap.Int("count", len(run.Details)))
		}
	}

	if f.saveCSV {
		path := filepath.Join(f.root, ProcessedDir, fmt.Sprintf("search_results_%s.csv", safe))
		if err := appendCSV(path, run.Summaries); err != nil {
			return err
		}
		f.log.Info("CSV rows appended.", zap.String("path", path), zap.Int("count", len(run.Summaries)))
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// appendCSV appends one row per summary, writing the header only when the file
// is created.
func appendCSV(path string, rows []schemas.Summary) (err error) {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if fresh {
		if _, err := fh.Write(utf8BOM); err != nil {
			return err
		}
	}
	w := csv.NewWriter(fh)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, s := range rows {
		record := []string{
			s.NoteID, s.Title, s.Author, s.AuthorID, strconv.Itoa(s.Likes),
			string(s.NoteType), s.NoteURL, s.PublishTime,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
