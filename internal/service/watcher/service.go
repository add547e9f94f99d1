package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/outage-watch/internal/chart"
	"github.com/oshokin/outage-watch/internal/domain/outage"
	"github.com/oshokin/outage-watch/internal/logger"
	"github.com/oshokin/outage-watch/internal/metrics"
	"github.com/oshokin/outage-watch/internal/notify"
	"github.com/oshokin/outage-watch/internal/publisher"
	repo "github.com/oshokin/outage-watch/internal/repository/state"
	"github.com/oshokin/outage-watch/internal/source"
)

// errRowPanicked wraps a recovered panic from one row.
var errRowPanicked = errors.New("row processing panicked")

// observedRow is a snapshot row with its classified state.
type observedRow struct {
	row   outage.Row
	state outage.PowerState
}

// Notification kinds used in metrics.
const (
	kindText  = "text"
	kindPhoto = "photo"
)

// stateClassifier decides the power state from status text.
type stateClassifier interface {
	Classify(status string) outage.PowerState
}

// dependencies are the collaborators of a service.
type dependencies struct {
	reader     source.Reader
	repo       repo.Repository
	classifier stateClassifier
	notifier   notify.Notifier
	publisher  publisher.Publisher
	metrics    *metrics.Metrics
	groups     outage.Groups
	location   *time.Location
	// onHealth is told whether the last fetch succeeded.
	onHealth func(serving bool)
	// now returns the poll time.
	now func() time.Time
	// render draws the chart of a window.
	render func(title string, points []outage.Point, now time.Time) ([]byte, error)
	// newID returns a cycle id.
	newID func() string
}

// service runs poll cycles one at a time.
type service struct {
	dependencies

	// slot holds a token while a cycle runs.
	slot chan struct{}
	// mu protects the fields below.
	mu sync.RWMutex
	// healthy is false after a failed fetch until the next successful one.
	healthy bool
	// last is the report of the latest finished cycle.
	last *outage.CycleReport
}

// newService fills optional dependencies with defaults.
func newService(deps dependencies) *service {
	if deps.classifier == nil {
		deps.classifier = outage.NewClassifier(nil, nil)
	}

	if deps.notifier == nil {
		deps.notifier = notify.LogNotifier{}
	}

	if deps.publisher == nil {
		deps.publisher = publisher.NopPublisher{}
	}

	if deps.location == nil {
		deps.location = time.Local
	}

	if deps.onHealth == nil {
		deps.onHealth = func(bool) {}
	}

	if deps.now == nil {
		deps.now = time.Now
	}

	if deps.render == nil {
		deps.render = chart.Render
	}

	if deps.newID == nil {
		deps.newID = uuid.NewString
	}

	return &service{
		dependencies: deps,
		slot:         make(chan struct{}, 1),
		healthy:      true,
	}
}

// TriggerCheck waits for the cycle slot and runs one cycle.
func (s *service) TriggerCheck(ctx context.Context) (*outage.CycleReport, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	defer func() {
		<-s.slot
	}()

	return s.cycle(ctx)
}

// Healthy reports whether the last fetch succeeded.
func (s *service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.healthy
}

// LastReport returns the report of the latest cycle, nil before the first one.
func (s *service) LastReport() *outage.CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil
	}

	report := *s.last

	return &report
}

// outcome is what processing one row produced.
type outcome struct {
	row      outage.Row
	message  string
	appended *outage.Event
	notify   bool
}

// cycle reads the source, advances the history, notifies and persists.
//
//nolint:cyclop,funlen // The steps are sequential and read best in one place.
func (s *service) cycle(ctx context.Context) (*outage.CycleReport, error) {
	now := s.now().In(s.location)
	report := &outage.CycleReport{
		CycleID:   s.newID(),
		StartedAt: now,
	}

	ctx = logger.WithKV(ctx, "cycle_id", report.CycleID)
	result := metrics.ResultOK

	defer func() {
		report.Duration = s.now().Sub(now)
		s.metrics.CycleFinished(result, report.Duration)
		s.finish(report)
	}()

	// Read the snapshot. Nothing is touched when it fails or is empty.
	rows, err := s.reader.Read(ctx)
	if err == nil && len(rows) == 0 {
		err = source.ErrNoRows
	}

	if err != nil {
		result = metrics.ResultAborted
		s.setHealthy(false)
		logger.WarnKV(ctx, "Cycle aborted", "error", err)

		return report, err
	}

	s.setHealthy(true)
	s.metrics.RowsSeen(len(rows))
	report.Rows = len(rows)

	// Work on copies so a failed save leaves the stored state untouched.
	history, err := s.loadHistory(ctx)
	if err != nil {
		result = metrics.ResultFailed

		return report, err
	}

	rendered, err := s.loadRendered(ctx)
	if err != nil {
		result = metrics.ResultFailed

		return report, err
	}

	observed := s.collapse(ctx, rows, report)
	outcomes := make([]outcome, 0, len(observed))

	for _, item := range observed {
		out, err := s.processRow(ctx, history, rendered, item, now)
		if err != nil {
			report.Failed++
			logger.ErrorKV(ctx, "Address processing failed", "address", item.row.Address, "error", err)

			continue
		}

		outcomes = append(outcomes, out)
	}

	if err = s.repo.SaveHistory(ctx, history); err != nil {
		result = metrics.ResultFailed
		logger.ErrorKV(ctx, "History not saved, discarding cycle", "error", err)

		return report, fmt.Errorf("save history: %w", err)
	}

	records := make([]publisher.Record, 0, len(outcomes))

	for _, out := range outcomes {
		if out.appended != nil {
			report.Appended++
			s.metrics.EventAppended(out.appended.Kind.String())
			records = append(records, publisher.Record{
				CycleID: report.CycleID,
				Address: out.row.Address,
				Event:   *out.appended,
			})
		}

		if !out.notify {
			continue
		}

		if err = s.deliver(ctx, history, out, now); err != nil {
			report.Failed++
			logger.ErrorKV(ctx, "Notification failed", "address", out.row.Address, "error", err)

			continue
		}

		report.Notified++
		rendered.Remember(out.row.Address, out.message)
	}

	if report.Notified > 0 {
		if err = s.repo.SaveRendered(ctx, rendered); err != nil {
			logger.ErrorKV(ctx, "Rendered state not saved, messages may repeat", "error", err)
		}
	}

	if len(records) > 0 {
		err = s.publisher.Publish(ctx, records...)
		for range records {
			s.metrics.Published(err)
		}

		if err != nil {
			logger.ErrorKV(ctx, "Events not published", "count", len(records), "error", err)
		}
	}

	logger.InfoKV(ctx, "Cycle finished",
		"rows", report.Rows, "appended", report.Appended, "notified", report.Notified, "failed", report.Failed)

	return report, nil
}

// collapse classifies the rows and keeps one per address in first-seen order.
// The source may list several outages for one address, e.g. an active and a
// planned one; an outage row wins over a powered one, otherwise the first row.
// Rows that cannot be classified are counted as failed.
func (s *service) collapse(ctx context.Context, rows []outage.Row, report *outage.CycleReport) []observedRow {
	observed := make([]observedRow, 0, len(rows))
	positions := make(map[string]int, len(rows))

	for _, row := range rows {
		state, err := s.classify(row)
		if err != nil {
			report.Failed++
			logger.ErrorKV(ctx, "Address processing failed", "address", row.Address, "error", err)

			continue
		}

		position, seen := positions[row.Address]
		if !seen {
			positions[row.Address] = len(observed)
			observed = append(observed, observedRow{row: row, state: state})

			continue
		}

		logger.DebugKV(ctx, "Repeated address in snapshot",
			"address", row.Address, "kept_start", observed[position].row.ScheduledStart, "start", row.ScheduledStart)

		if state == outage.WithoutPower && observed[position].state != outage.WithoutPower {
			observed[position] = observedRow{row: row, state: state}
		}
	}

	return observed
}

// classify runs the classifier with a panic confined to the row.
func (s *service) classify(row outage.Row) (state outage.PowerState, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", errRowPanicked, recovered)
		}
	}()

	return s.classifier.Classify(row.Status), nil
}

// processRow advances the history of one classified row and renders its message.
// A panic is confined to the row.
func (s *service) processRow(
	ctx context.Context,
	history outage.History,
	rendered outage.Rendered,
	item observedRow,
	now time.Time,
) (out outcome, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", errRowPanicked, recovered)
		}
	}()

	row, state := item.row, item.state
	narrative := outage.Process(history, outage.Observation{
		Address:        row.Address,
		State:          state,
		ScheduledStart: row.ScheduledStart,
		ScheduledEnd:   row.ScheduledEnd,
		Now:            now,
	})

	text, err := renderMessage(row, narrative, s.groups.Lookup(row.Address), s.location)
	if err != nil {
		return outcome{}, err
	}

	logger.DebugKV(ctx, "Row processed",
		"address", row.Address, "state", state.String(), "appended", narrative.Appended != nil)

	return outcome{
		row:      row,
		message:  text,
		appended: narrative.Appended,
		notify:   rendered.ShouldNotify(row.Address, text),
	}, nil
}

// deliver sends the message, with the 24h chart when the window has points.
func (s *service) deliver(ctx context.Context, history outage.History, out outcome, now time.Time) error {
	points := outage.Window(history.Events(out.row.Address), now, outage.VisualizationSpan)
	if points != nil {
		title := fmt.Sprintf(chartTitleFormat, out.row.Address, s.groups.Lookup(out.row.Address))

		image, err := s.render(title, points, now)
		if err == nil {
			err = s.notifier.SendPhoto(ctx, image, out.message+chartSuffix)
			s.metrics.Notification(kindPhoto, err)

			return err
		}

		logger.WarnKV(ctx, "Chart not rendered, sending text", "address", out.row.Address, "error", err)
	}

	err := s.notifier.SendText(ctx, out.message)
	s.metrics.Notification(kindText, err)

	return err
}

// loadHistory returns a working copy of the stored history.
func (s *service) loadHistory(ctx context.Context) (outage.History, error) {
	history, err := s.repo.LoadHistory(ctx)
	switch {
	case err == nil:
		return history.Clone(), nil
	case errors.Is(err, repo.ErrNotFound):
		return outage.NewHistory(), nil
	default:
		return nil, fmt.Errorf("load history: %w", err)
	}
}

// loadRendered returns a working copy of the last sent messages.
func (s *service) loadRendered(ctx context.Context) (outage.Rendered, error) {
	rendered, err := s.repo.LoadRendered(ctx)
	switch {
	case err == nil:
		return rendered.Clone(), nil
	case errors.Is(err, repo.ErrNotFound):
		return outage.NewRendered(), nil
	default:
		return nil, fmt.Errorf("load rendered state: %w", err)
	}
}

// setHealthy records the fetch result and forwards changes.
func (s *service) setHealthy(healthy bool) {
	s.mu.Lock()
	changed := s.healthy != healthy
	s.healthy = healthy
	s.mu.Unlock()

	if changed {
		s.onHealth(healthy)
	}
}

// finish stores the report of a finished cycle.
func (s *service) finish(report *outage.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	finished := *report
	s.last = &finished
}
