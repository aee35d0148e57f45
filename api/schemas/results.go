package schemas

import "time"

// SessionStatus reports whether the browser is up and the account is signed in.
type SessionStatus struct {
	LoggedIn       bool   `json:"logged_in"`
	BrowserRunning bool   `json:"browser_running"`
	Message        string `json:"message"`
}

// SearchResult is the outcome of a keyword search.
type SearchResult struct {
	Keyword string    `json:"keyword"`
	Count   int       `json:"count"`
	Results []Summary `json:"results"`
}

// CrawlSummary aggregates a bulk search + detail job.
type CrawlSummary struct {
	RunID         string `json:"run_id"`
	Keyword       string `json:"keyword"`
	SearchCount   int    `json:"search_count"`
	DetailCount   int    `json:"detail_count"`
	FailedCount   int    `json:"failed_count"`
	TotalComments int    `json:"total_comments"`
	Summary       string `json:"summary"`
}

// SavedFile describes one exported data file on disk.
type SavedFile struct {
	Path      string `json:"path"`
	Keyword   string `json:"keyword"`
	CreatedAt string `json:"created_at"`
	SizeBytes int64  `json:"size_bytes"`
}

// SavedData lists exported files.
type SavedData struct {
	Files []SavedFile `json:"files"`
}

// Run is everything one bulk job collected, handed to persistence once the
// job finishes.
type Run struct {
	ID        string    `json:"run_id"`
	Keyword   string    `json:"keyword"`
	CrawledAt time.Time `json:"crawled_at"`
	Summaries []Summary `json:"results"`
	Details   []Detail  `json:"details"`
	Failed    int       `json:"failed"`
}
