// Package search collects note summaries from the keyword search listing.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/extract"
	"github.com/xkilldash9x/notecrawl/internal/harvest"
)

// noteSearchType selects the "notes" tab of the results page.
const noteSearchType = "51"

// URL returns the listing page for keyword.
func URL(keyword string) string {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("type", noteSearchType)
	return extract.BaseURL + "/search_result?" + q.Encode()
}

// Searcher runs keyword searches on a page it is handed.
type Searcher struct {
	logger    *zap.Logger
	cfg       config.HarvestConfig
	loadWait  config.FetchConfig
	harvester *harvest.Harvester
	extractor *extract.Extractor
}

// New creates a Searcher.
func New(cfg config.HarvestConfig, fetchCfg config.FetchConfig, h *harvest.Harvester, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("search")
	return &Searcher{
		logger:    logger,
		cfg:       cfg,
		loadWait:  fetchCfg,
		harvester: h,
		extractor: extract.New(logger),
	}
}

// Search loads the listing for keyword, scrolls until max cards are visible or
// the feed stops growing, and returns up to max summaries in page order. A
// listing on which no card ever appears yields an empty, non-nil slice.
func (s *Searcher) Search(ctx context.Context, page browser.Page, keyword string, max int) ([]schemas.Summary, error) {
	logger := s.logger.With(zap.String("keyword", keyword), zap.Int("max", max))
	results := []schemas.Summary{}

	if err := page.Navigate(ctx, URL(keyword), s.loadWait.PageLoadTimeout); err != nil {
		return results, fmt.Errorf("loading search page: %w", err)
	}

	sel, err := s.detectCards(ctx, page)
	if errors.Is(err, browser.ErrNotFound) {
		logger.Warn("No result cards appeared; check the selectors or the login state.")
		return results, nil
	}
	if err != nil {
		return results, err
	}
	logger.Debug("Card selector matched.", zap.String("selector", sel))

	if _, err := s.harvester.Run(ctx, page, harvest.ListingMode(s.cfg.Listing), sel, max); err != nil {
		return results, fmt.Errorf("harvesting listing: %w", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return results, fmt.Errorf("snapshotting listing: %w", err)
	}
	doc, err := extract.ParseDocument(html)
	if err != nil {
		return results, err
	}

	seen := make(map[string]struct{})
	for _, card := range s.extractor.Cards(doc, sel) {
		if len(results) >= max {
			break
		}
		if _, dup := seen[card.NoteID]; dup {
			continue
		}
		seen[card.NoteID] = struct{}{}
		results = append(results, card)
	}

	logger.Info("Search finished.", zap.Int("count", len(results)))
	return results, nil
}

// detectCards waits for the first batch of cards, then returns the most
// specific card selector that matches.
func (s *Searcher) detectCards(ctx context.Context, page browser.Page) (string, error) {
	group := strings.Join(extract.CardSelectors, ", ")
	if err := page.WaitFor(ctx, group, s.cfg.CardWait); err != nil {
		return "", err
	}
	for _, sel := range extract.CardSelectors {
		n, err := page.Count(ctx, sel)
		if err != nil {
			return "", err
		}
		if n > 0 {
			return sel, nil
		}
	}
	return "", browser.ErrNotFound
}
