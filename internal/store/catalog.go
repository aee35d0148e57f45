package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xkilldash9x/notecrawl/api/schemas"
)

// ErrBadFilename is returned for resource names that could escape the data
// directory.
var ErrBadFilename = errors.New("invalid file name")

var (
	stampSuffix  = regexp.MustCompile(`_\d{8}_\d{6}$`)
	savedExts    = map[string]bool{".json": true, ".csv": true, ".xlsx": true}
	stemPrefixes = []string{"notes_", "search_results_"}
)

const catalogLayout = "2006-01-02T15:04:05"

// KeywordFromStem recovers the keyword from a saved file's name without its
// extension, e.g. notes_tea_20240315_143022 yields tea.
func KeywordFromStem(stem string) string {
	for _, p := range stemPrefixes {
		if strings.HasPrefix(stem, p) {
			stem = stem[len(p):]
			break
		}
	}
	return stampSuffix.ReplaceAllString(stem, "")
}

// List returns the saved files under root whose keyword contains keyword,
// case-insensitively. An empty keyword lists everything.
func List(root, keyword string) (schemas.SavedData, error) {
	out := schemas.SavedData{Files: []schemas.SavedFile{}}
	needle := strings.ToLower(strings.TrimSpace(keyword))

	for _, sub := range []string{RawDir, ProcessedDir} {
		dir := filepath.Join(root, sub)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if !savedExts[ext] {
				continue
			}
			kw := KeywordFromStem(strings.TrimSuffix(e.Name(), ext))
			if needle != "" && !strings.Contains(strings.ToLower(kw), needle) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out.Files = append(out.Files, schemas.SavedFile{
				Path:      filepath.Join(dir, e.Name()),
				Keyword:   kw,
				CreatedAt: info.ModTime().Format(catalogLayout),
				SizeBytes: info.Size(),
			})
		}
	}
	return out, nil
}

// ReadFile returns the contents of a saved file by bare name, looking in raw/
// then processed/.
func ReadFile(root, name string) ([]byte, error) {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	for _, sub := range []string{RawDir, ProcessedDir} {
		data, err := os.ReadFile(filepath.Join(root, sub, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}
