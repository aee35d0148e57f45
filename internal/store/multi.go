package store

import (
	"context"
	"errors"

	"github.com/xkilldash9x/notecrawl/api/schemas"
)

// Saver persists a finished run.
type Saver interface {
	SaveAll(ctx context.Context, run schemas.Run) error
}

// Multi fans a run out to several savers. Every saver runs; their errors are
// joined.
type Multi []Saver

// SaveAll calls SaveAll on each saver in order.
func (m Multi) SaveAll(ctx context.Context, run schemas.Run) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveAll(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
