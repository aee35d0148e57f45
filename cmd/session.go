// File: cmd/session.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/apperr"
)

// bounded clamps n to [lo, hi].
func bounded(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func requireKeyword(raw string) (string, error) {
	kw := strings.TrimSpace(raw)
	if kw == "" {
		return "", apperr.InvalidInput("keyword", "must not be empty")
	}
	return kw, nil
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Starts the browser and reports whether the account is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd.Context(), func(ctx context.Context, a *app) error {
				status, err := a.svc.CheckSession(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), status)
			})
		},
	}
}

func (c *cli) newSearchCmd() *cobra.Command {
	var maxCount int
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Searches notes by keyword and prints their summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword, err := requireKeyword(args[0])
			if err != nil {
				return err
			}
			maxCount = bounded(maxCount, 1, 50)
			return c.withSession(cmd.Context(), func(ctx context.Context, a *app) error {
				result, err := a.svc.Search(ctx, keyword, maxCount)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().IntVarP(&maxCount, "max", "n", 20, "maximum number of summaries (1-50)")
	return cmd
}

func (c *cli) newNoteCmd() *cobra.Command {
	var maxComments int
	cmd := &cobra.Command{
		Use:   "note [note-url]",
		Short: "Fetches one note with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteURL := strings.TrimSpace(args[0])
			if noteURL == "" {
				return apperr.InvalidInput("note_url", "must not be empty")
			}
			maxComments = bounded(maxComments, 0, 50)
			return c.withSession(cmd.Context(), func(ctx context.Context, a *app) error {
				detail, err := a.svc.FetchItem(ctx, noteURL, maxComments)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
	cmd.Flags().IntVar(&maxComments, "comments", 20, "maximum number of comments (0-50)")
	return cmd
}

func (c *cli) newCrawlCmd() *cobra.Command {
	var maxNotes, maxComments int
	cmd := &cobra.Command{
		Use:   "crawl [keywords...]",
		Short: "Searches each keyword, fetches every hit and saves the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords := make([]string, 0, len(args))
			for _, raw := range args {
				kw, err := requireKeyword(raw)
				if err != nil {
					return err
				}
				keywords = append(keywords, kw)
			}
			maxNotes = bounded(maxNotes, 1, 20)
			maxComments = bounded(maxComments, 0, 50)

			return c.withSession(cmd.Context(), func(ctx context.Context, a *app) error {
				summaries, err := c.crawlKeywords(ctx, a, keywords, maxNotes, maxComments)
				if werr := writeJSON(cmd.OutOrStdout(), summaries); werr != nil {
					return werr
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&maxNotes, "notes", 10, "maximum notes per keyword (1-20)")
	cmd.Flags().IntVar(&maxComments, "comments", 20, "maximum comments per note (0-50)")
	return cmd
}

// crawlKeywords runs FetchAll for each keyword in turn with a random pause in
// between. A failed keyword is logged and skipped; session level failures end
// the whole run.
func (c *cli) crawlKeywords(ctx context.Context, a *app, keywords []string, maxNotes, maxComments int) ([]schemas.CrawlSummary, error) {
	hcfg := c.cfg.Harvest()
	out := []schemas.CrawlSummary{}
	failed := 0
	for i, kw := range keywords {
		if i > 0 {
			if err := a.pacer.Wait(ctx, 0, hcfg.KeywordDelayMin, hcfg.KeywordDelayMax); err != nil {
				return out, err
			}
		}
		c.logger.Info("Crawling keyword.", zap.Int("index", i+1), zap.Int("total", len(keywords)), zap.String("keyword", kw))

		summary, err := a.svc.FetchAll(ctx, kw, maxNotes, maxComments)
		if err != nil {
			if ctx.Err() != nil || isSessionFailure(err) {
				return out, err
			}
			failed++
			c.logger.Warn("Keyword failed, continuing.", zap.String("keyword", kw), zap.Error(err))
			continue
		}
		out = append(out, summary)
	}
	if failed > 0 {
		return out, fmt.Errorf("%d of %d keywords failed", failed, len(keywords))
	}
	return out, nil
}

func isSessionFailure(err error) bool {
	return apperr.HasCode(err, apperr.CodeSessionExpired) ||
		apperr.HasCode(err, apperr.CodeSessionCrashed) ||
		apperr.HasCode(err, apperr.CodeSessionNotRunning)
}
