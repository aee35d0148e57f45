// Package fetch loads single note pages and extracts the note with its
// comment thread.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/extract"
	"github.com/xkilldash9x/notecrawl/internal/harvest"
	"github.com/xkilldash9x/notecrawl/internal/observability"
)

var (
	// ErrNoRecord is returned when a loaded page yields no identifiable note.
	ErrNoRecord = errors.New("page yielded no note record")
	// ErrInvalidURL is returned for locators that do not name a note.
	ErrInvalidURL = errors.New("not a note url")
)

// Fetcher produces detail records. It only uses the session it is handed and
// never holds on to it.
type Fetcher struct {
	logger    *zap.Logger
	cfg       config.FetchConfig
	harvest   config.HarvestConfig
	harvester *harvest.Harvester
	pacer     *harvest.Pacer
	extractor *extract.Extractor
}

// New creates a Fetcher.
func New(cfg config.FetchConfig, harvestCfg config.HarvestConfig, h *harvest.Harvester, pacer *harvest.Pacer, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("fetch")
	return &Fetcher{
		logger:    logger,
		cfg:       cfg,
		harvest:   harvestCfg,
		harvester: h,
		pacer:     pacer,
		extractor: extract.New(logger),
	}
}

// Fetch loads noteURL and returns the note with up to maxComments comments.
// Load timeouts are retried on a fresh page up to cfg.MaxRetries times; any
// other failure is returned at once.
func (f *Fetcher) Fetch(ctx context.Context, s browser.Session, noteURL string, maxComments int) (schemas.Detail, error) {
	if !strings.HasPrefix(noteURL, "http://") && !strings.HasPrefix(noteURL, "https://") {
		return schemas.Detail{}, fmt.Errorf("%w: %q", ErrInvalidURL, extract.StripQuery(noteURL))
	}
	noteID, ok := extract.NoteIDFromURL(noteURL)
	if !ok {
		return schemas.Detail{}, fmt.Errorf("%w: %q", ErrInvalidURL, extract.StripQuery(noteURL))
	}
	logger := f.logger.With(zap.String("note_id", noteID))

	attempts := f.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		detail, err := f.attempt(ctx, s, noteURL, noteID, maxComments)
		if err == nil {
			logger.Info("Note fetched.",
				zap.Int("attempt", attempt),
				zap.Int("comments", len(detail.Comments)),
			)
			return detail, nil
		}
		if !errors.Is(err, browser.ErrNavigationTimeout) || attempt >= attempts {
			return schemas.Detail{}, fmt.Errorf("fetching note %s failed after %d attempt(s): %w", noteID, attempt, err)
		}

		logger.Warn("Note page load timed out; retrying.",
			observability.URL("url", noteURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
		)
		if err := f.pacer.Sleep(ctx, f.cfg.RetryBackoff); err != nil {
			return schemas.Detail{}, err
		}
	}
}

// attempt performs one load on its own page, which is closed before returning.
func (f *Fetcher) attempt(ctx context.Context, s browser.Session, noteURL, noteID string, maxComments int) (schemas.Detail, error) {
	page, err := s.NewPage(ctx)
	if err != nil {
		return schemas.Detail{}, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, noteURL, f.cfg.PageLoadTimeout); err != nil {
		return schemas.Detail{}, err
	}

	ready := true
	if _, err := browser.WaitFirst(ctx, page, extract.DetailReadySelectors, f.cfg.ReadyWait); err != nil {
		if !errors.Is(err, browser.ErrNotFound) {
			return schemas.Detail{}, err
		}
		ready = false
		f.logger.Debug("No ready signal; extracting anyway.", zap.String("note_id", noteID))
	}
	if err := f.pacer.Sleep(ctx, f.cfg.RenderWait); err != nil {
		return schemas.Detail{}, err
	}

	doc, err := snapshot(ctx, page)
	if err != nil {
		return schemas.Detail{}, err
	}
	detail, ok := f.extractor.Detail(doc, noteID)
	if !ok || (!ready && blank(detail)) {
		return schemas.Detail{}, ErrNoRecord
	}

	comments, err := f.comments(ctx, page, noteID, maxComments)
	if err != nil {
		return schemas.Detail{}, err
	}
	return detail.WithComments(comments), nil
}

// comments harvests the thread on an already loaded note page. A note without
// a visible thread has no comments; only cancellation is an error.
func (f *Fetcher) comments(ctx context.Context, page browser.Page, noteID string, max int) ([]schemas.Comment, error) {
	if max <= 0 {
		return []schemas.Comment{}, nil
	}

	sel, err := browser.WaitFirst(ctx, page, extract.CommentSelectors, f.cfg.CommentWait)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Debug("No comments found.", zap.String("note_id", noteID), zap.Error(err))
		return []schemas.Comment{}, nil
	}

	if _, err := f.harvester.Run(ctx, page, harvest.CommentMode(f.harvest.Comments), sel, max); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("Comment harvest stopped early.", zap.String("note_id", noteID), zap.Error(err))
	}

	doc, err := snapshot(ctx, page)
	if err != nil {
		return nil, err
	}
	return f.extractor.Comments(doc, sel, noteID, max), nil
}

func snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting page: %w", err)
	}
	return extract.ParseDocument(html)
}

// blank reports whether nothing of the note rendered, as on a removed note or
// a login wall.
func blank(d schemas.Detail) bool {
	return d.Title == "" && d.Content == "" && d.Author == "" && len(d.Images) == 0 && d.VideoURL == ""
}
