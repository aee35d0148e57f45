package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/apperr"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/fetch"
)

const (
	msgLoggedIn  = "Signed in; crawling is available."
	msgLoggedOut = "Not signed in. Run `notecrawl login` to sign in, then restart the service."
)

// CheckSession reports whether the browser is up and the account signed in.
func (o *Orchestrator) CheckSession(ctx context.Context) (schemas.SessionStatus, error) {
	var status schemas.SessionStatus
	err := o.run(ctx, OpCheckSession, o.cfg.DefaultTimeout, func(ctx context.Context, s browser.Session) error {
		ok, err := o.deps.Prober.ProbeSession(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("Login probe failed; reporting signed out.", zap.Error(err))
			ok = false
		}
		status = schemas.SessionStatus{LoggedIn: ok, BrowserRunning: true, Message: msgLoggedOut}
		if ok {
			status.Message = msgLoggedIn
		}
		return nil
	})
	return status, err
}

// Search returns up to max summaries for keyword. An empty listing while signed
// out is reported as SessionExpired.
func (o *Orchestrator) Search(ctx context.Context, keyword string, max int) (schemas.SearchResult, error) {
	var out schemas.SearchResult
	err := o.run(ctx, OpSearch, o.cfg.SearchTimeout, func(ctx context.Context, s browser.Session) error {
		results, err := o.search(ctx, s, keyword, max)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			if err := o.expired(ctx, s); err != nil {
				return err
			}
		}
		out = schemas.SearchResult{Keyword: keyword, Count: len(results), Results: results}
		return nil
	})
	return out, err
}

// FetchItem returns one note with up to maxComments comments. A failed fetch
// while signed out is reported as SessionExpired.
func (o *Orchestrator) FetchItem(ctx context.Context, noteURL string, maxComments int) (schemas.Detail, error) {
	var out schemas.Detail
	err := o.run(ctx, OpFetchItem, o.cfg.DetailTimeout, func(ctx context.Context, s browser.Session) error {
		detail, err := o.deps.Fetcher.Fetch(ctx, s, noteURL, maxComments)
		if err == nil {
			out = detail
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, fetch.ErrInvalidURL) {
			return apperr.InvalidInput("note_url", "it does not link to a note")
		}
		o.logger.Warn("Note fetch failed.", zap.Error(err))
		if err := o.expired(ctx, s); err != nil {
			return err
		}
		return apperr.OperationFailed("the note URL is invalid or the page could not be loaded")
	})
	return out, err
}

// FetchAll searches keyword, fetches every hit and hands the result to the
// saver. It holds the session for the whole job. maxNotes is capped at the
// configured per-job limit.
func (o *Orchestrator) FetchAll(ctx context.Context, keyword string, maxNotes, maxComments int) (schemas.CrawlSummary, error) {
	if maxNotes > o.cfg.MaxNotes {
		maxNotes = o.cfg.MaxNotes
	}

	var out schemas.CrawlSummary
	err := o.run(ctx, OpFetchAll, o.cfg.CrawlTimeout, func(ctx context.Context, s browser.Session) error {
		runID := o.newRunID()
		logger := o.logger.With(zap.String("run_id", runID), zap.String("keyword", keyword))
		logger.Info("Crawl started.", zap.Int("max_notes", maxNotes), zap.Int("max_comments", maxComments))

		summaries, err := o.search(ctx, s, keyword, maxNotes)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			if err := o.expired(ctx, s); err != nil {
				return err
			}
		}

		batch := fetch.BatchResult{Details: []schemas.Detail{}}
		if len(summaries) > 0 {
			if batch, err = o.deps.Fetcher.FetchBatch(ctx, s, summaries, maxComments); err != nil {
				return err
			}
		}

		if o.deps.Saver != nil {
			run := schemas.Run{
				ID:        runID,
				Keyword:   keyword,
				CrawledAt: o.now(),
				Summaries: summaries,
				Details:   batch.Details,
				Failed:    batch.Failed,
			}
			if err := o.deps.Saver.SaveAll(ctx, run); err != nil {
				logger.Error("Saving crawl results failed.", zap.Error(err))
			}
		}

		total := 0
		for _, d := range batch.Details {
			total += len(d.Comments)
		}
		out = schemas.CrawlSummary{
			RunID:         runID,
			Keyword:       keyword,
			SearchCount:   len(summaries),
			DetailCount:   len(batch.Details),
			FailedCount:   batch.Failed,
			TotalComments: total,
			Summary: fmt.Sprintf("Keyword [%s] crawl finished: %d searched, %d detailed, %d failed, %d comments.",
				keyword, len(summaries), len(batch.Details), batch.Failed, total),
		}
		logger.Info(out.Summary)
		return nil
	})
	return out, err
}
