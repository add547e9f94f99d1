package state

import (
	"context"
	"sync"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// Overlay reads through to a base repository until the first save and keeps
// every save in memory, so the base files are never written.
type Overlay struct {
	// base provides the initial state.
	base Repository
	// mu protects the fields below.
	mu sync.Mutex
	// history is the last saved history, nil before the first save.
	history outage.History
	// rendered is the last saved rendered state, nil before the first save.
	rendered outage.Rendered
}

// NewOverlay wraps base.
func NewOverlay(base Repository) *Overlay {
	return &Overlay{base: base}
}

// LoadHistory returns the saved history or the base one.
func (o *Overlay) LoadHistory(ctx context.Context) (outage.History, error) {
	o.mu.Lock()
	history := o.history
	o.mu.Unlock()

	if history == nil {
		return o.base.LoadHistory(ctx)
	}

	return history.Clone(), nil
}

// SaveHistory keeps a copy in memory.
func (o *Overlay) SaveHistory(_ context.Context, history outage.History) error {
	if history == nil {
		history = outage.NewHistory()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.history = history.Clone()

	return nil
}

// LoadRendered returns the saved messages or the base ones.
func (o *Overlay) LoadRendered(ctx context.Context) (outage.Rendered, error) {
	o.mu.Lock()
	rendered := o.rendered
	o.mu.Unlock()

	if rendered == nil {
		return o.base.LoadRendered(ctx)
	}

	return rendered.Clone(), nil
}

// SaveRendered keeps a copy in memory.
func (o *Overlay) SaveRendered(_ context.Context, rendered outage.Rendered) error {
	if rendered == nil {
		rendered = outage.NewRendered()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.rendered = rendered.Clone()

	return nil
}
