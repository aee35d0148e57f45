package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordFromStem(t *testing.T) {
	tests := map[string]string{
		"Python教程_20240315_143022":       "Python教程",
		"notes_小红书技巧_20240315_143022":    "小红书技巧",
		"search_results_camping":          "camping",
		"under_score_kw_20240101_000000":  "under_score_kw",
		"no_stamp":                        "no_stamp",
		"notes_a_b_20240315":              "a_b_20240315",
	}
	for in, want := range tests {
		assert.Equal(t, want, KeywordFromStem(in), in)
	}
}

func writeFiles(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"raw/Camping_20240315_143022.json",
		"raw/notes_Camping_20240315_143022.json",
		"raw/tea_20240316_090000.json",
		"raw/ignore.txt",
		"processed/search_results_Camping.csv",
		"other/Camping_20240315_143022.json",
	)

	all, err := List(root, "")
	require.NoError(t, err)
	assert.Len(t, all.Files, 4)

	got, err := List(root, "camp")
	require.NoError(t, err)
	require.Len(t, got.Files, 3)
	for _, f := range got.Files {
		assert.Equal(t, "Camping", f.Keyword)
		assert.Equal(t, int64(2), f.SizeBytes)
		assert.NotEmpty(t, f.CreatedAt)
	}
	assert.Equal(t, filepath.Join(root, "raw", "Camping_20240315_143022.json"), got.Files[0].Path)
	assert.Equal(t, filepath.Join(root, "processed", "search_results_Camping.csv"), got.Files[2].Path)
}

func TestListMissingRoot(t *testing.T) {
	got, err := List(filepath.Join(t.TempDir(), "nope"), "")
	require.NoError(t, err)
	assert.NotNil(t, got.Files)
	assert.Empty(t, got.Files)
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "raw/a_20240101_000000.json", "processed/search_results_a.csv")

	data, err := ReadFile(root, "a_20240101_000000.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = ReadFile(root, "search_results_a.csv")
	assert.NoError(t, err)

	_, err = ReadFile(root, "missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	for _, bad := range []string{"", "..", "../config.yaml", "raw/a.json", `raw\a.json`, "a..json"} {
		_, err := ReadFile(root, bad)
		assert.ErrorIs(t, err, ErrBadFilename, bad)
	}
}
