package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/browser"
	"github.com/xkilldash9x/notecrawl/internal/observability"
)

// BatchResult is the outcome of FetchBatch.
type BatchResult struct {
	Details []schemas.Detail
	Failed  int
}

// FetchBatch fetches each summary's note in order with a randomized pause
// between items. Notes that fail after their retries are counted and skipped;
// only cancellation of ctx aborts the batch, returning what was collected.
func (f *Fetcher) FetchBatch(ctx context.Context, s browser.Session, summaries []schemas.Summary, maxComments int) (BatchResult, error) {
	res := BatchResult{Details: make([]schemas.Detail, 0, len(summaries))}

	for i, sum := range summaries {
		if i > 0 {
			if err := f.pacer.Wait(ctx, 0, f.harvest.BatchDelayMin, f.harvest.BatchDelayMax); err != nil {
				return res, err
			}
		}

		detail, err := f.Fetch(ctx, s, sum.NoteURL, maxComments)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			f.logger.Warn("Skipping note.",
				zap.String("note_id", sum.NoteID),
				observability.URL("url", sum.NoteURL),
				zap.Error(err),
			)
			continue
		}
		res.Details = append(res.Details, detail)
		f.logger.Info("Batch progress.",
			zap.Int("done", i+1),
			zap.Int("total", len(summaries)),
		)
	}
	return res, nil
}
