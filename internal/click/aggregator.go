package click

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/linklite/linklite/internal/errx"
)

// Aggregator computes the read-side summary for a link's click events.
// Results reflect every event persisted before the call began; events
// racing with the call may or may not be included.
type Aggregator struct {
	store Store
}

// NewAggregator creates an Aggregator backed by the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize returns the total click count and the device/country
// breakdowns for one link. A link with no events yields a zero summary.
func (a *Aggregator) Summarize(ctx context.Context, linkID uuid.UUID) (Summary, error) {
	const op = "click.aggregator.Summarize"

	if linkID == uuid.Nil {
		return Summary{}, errx.E(op, errx.Invalid, errors.New("link id cannot be empty"))
	}

	summary, err := a.store.SummarizeByLink(ctx, linkID)
	if err != nil {
		return Summary{}, errx.E(op, errx.KindOf(err), err)
	}

	if summary.ByDevice == nil {
		summary.ByDevice = map[string]int64{}
	}
	if summary.ByCountry == nil {
		summary.ByCountry = map[string]int64{}
	}

	return summary, nil
}
