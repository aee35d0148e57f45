// File: internal/mcp/types.go
package mcp

import (
	"context"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/apperr"
)

// Tool names exposed under /api/v1/tools/{tool}.
const (
	ToolCheckSession = "check_login_status"
	ToolSearch       = "search_notes"
	ToolFetchItem    = "get_note_detail"
	ToolFetchAll     = "crawl_keyword"
	ToolSavedData    = "get_saved_data"
)

// Input bounds and defaults applied before a request reaches the service.
const (
	defaultMaxCount    = 20
	minMaxCount        = 1
	maxMaxCount        = 50
	defaultMaxNotes    = 10
	minMaxNotes        = 1
	maxMaxNotes        = 20
	defaultMaxComments = 20
	minMaxComments     = 0
	maxMaxComments     = 50
)

// Service is the crawl session the tools drive. *orchestrator.Orchestrator
// satisfies it.
type Service interface {
	CheckSession(ctx context.Context) (schemas.SessionStatus, error)
	Search(ctx context.Context, keyword string, max int) (schemas.SearchResult, error)
	FetchItem(ctx context.Context, noteURL string, maxComments int) (schemas.Detail, error)
	FetchAll(ctx context.Context, keyword string, maxNotes, maxComments int) (schemas.CrawlSummary, error)
}

// ConfigSource renders the active configuration. *config.Config satisfies it.
type ConfigSource interface {
	YAML() ([]byte, error)
}

// ToolResponse is the envelope of every tool reply.
type ToolResponse struct {
	Status  string        `json:"status"` // "success" or "error"
	Data    interface{}   `json:"data,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ToolInfo describes one tool in the listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SearchParams are the arguments of search_notes.
type SearchParams struct {
	Keyword string `json:"keyword"`
	// Pointers distinguish an omitted value from an explicit zero.
	MaxCount *int `json:"max_count,omitempty"`
}

// DetailParams are the arguments of get_note_detail.
type DetailParams struct {
	NoteURL     string `json:"note_url"`
	MaxComments *int   `json:"max_comments,omitempty"`
}

// CrawlParams are the arguments of crawl_keyword.
type CrawlParams struct {
	Keyword     string `json:"keyword"`
	MaxNotes    *int   `json:"max_notes,omitempty"`
	MaxComments *int   `json:"max_comments,omitempty"`
}

// SavedDataParams are the arguments of get_saved_data. An empty keyword lists
// every file.
type SavedDataParams struct {
	Keyword string `json:"keyword,omitempty"`
}

var toolCatalog = []ToolInfo{
	{Name: ToolCheckSession, Description: "Report whether the browser is running and the account is signed in."},
	{Name: ToolSearch, Description: "Search notes by keyword and return summaries. max_count defaults to 20, range 1-50."},
	{Name: ToolFetchItem, Description: "Fetch one note with its comments. max_comments defaults to 20, range 0-50."},
	{Name: ToolFetchAll, Description: "Search a keyword, fetch every hit and save the results. max_notes defaults to 10, range 1-20."},
	{Name: ToolSavedData, Description: "List saved data files, optionally filtered by keyword."},
}

// clamp resolves an optional integer argument to def when absent and bounds it
// to [lo, hi].
func clamp(v *int, def, lo, hi int) int {
	n := def
	if v != nil {
		n = *v
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
