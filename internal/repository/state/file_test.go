package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// newTestRepository creates a repository in a fresh temporary directory.
func newTestRepository(t *testing.T) (*FileRepository, string) {
	t.Helper()

	dir := t.TempDir()

	return NewFileRepository(filepath.Join(dir, "history.json"), filepath.Join(dir, "rendered.json")), dir
}

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing files.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	h, err := repo.LoadHistory(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, h)

	r, err := repo.LoadRendered(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load reproduces both mappings.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	repo, dir := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 10, 0, 30, 0, time.UTC)

	history := outage.NewHistory()
	history.Append("Совіньйон, 1", outage.NewEvent(outage.EventOff, "10:00", now))
	history.Append("Совіньйон, 1", outage.NewEvent(outage.EventOn, "14:30", now.Add(5*time.Hour)))
	history.Append("Ольгіївська", outage.NewEvent(outage.EventOn, "n/a", now))

	rendered := outage.Rendered{
		"Совіньйон, 1": "<b>Світло є!</b> Совіньйон, 1",
		"Ольгіївська":  "<b>Світла немає!</b>",
	}

	require.NoError(t, repo.SaveHistory(ctx, history))
	require.NoError(t, repo.SaveRendered(ctx, rendered))

	gotHistory, err := repo.LoadHistory(ctx)
	require.NoError(t, err)
	require.Equal(t, history, gotHistory)

	gotRendered, err := repo.LoadRendered(ctx)
	require.NoError(t, err)
	require.Equal(t, rendered, gotRendered)

	// Only the two target files remain, no temporary leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// TestFileRepository_SaveReplacesWhole checks a second save fully replaces the first.
func TestFileRepository_SaveReplacesWhole(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRendered(ctx, outage.Rendered{"A": "long message that is longer"}))
	require.NoError(t, repo.SaveRendered(ctx, outage.Rendered{"A": "short"}))

	got, err := repo.LoadRendered(ctx)
	require.NoError(t, err)
	require.Equal(t, outage.Rendered{"A": "short"}, got)
}

// TestFileRepository_CorruptFile reports decode errors instead of silently resetting history.
func TestFileRepository_CorruptFile(t *testing.T) {
	t.Parallel()

	repo, dir := newTestRepository(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte("{not json"), 0o600))

	_, err := repo.LoadHistory(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_SaveFailure leaves the previous file untouched when the directory is gone.
func TestFileRepository_SaveFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := NewFileRepository(filepath.Join(dir, "missing", "history.json"), filepath.Join(dir, "rendered.json"))

	err := repo.SaveHistory(context.Background(), outage.NewHistory())
	require.Error(t, err)
}

// TestFileRepository_LoadDatesLegacyEvents pairs stored clocks with dates in the configured zone.
func TestFileRepository_LoadDatesLegacyEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kyiv := time.FixedZone("EEST", 3*60*60)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, kyiv)

	repo := NewFileRepository(
		filepath.Join(dir, "history.json"),
		filepath.Join(dir, "rendered.json"),
		WithLocation(kyiv),
		WithClock(func() time.Time { return now }),
	)

	legacy := `{"Совіньйон, 1":{"events":[{"off":"07:30:00","time":"07:31:00"}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte(legacy), 0o600))

	history, err := repo.LoadHistory(context.Background())
	require.NoError(t, err)

	events := history.Events("Совіньйон, 1")
	require.Len(t, events, 1)
	require.Equal(t, time.Date(2026, 10, 19, 7, 30, 0, 0, kyiv).UTC(), events[0].Since)
	require.Equal(t, time.Date(2026, 10, 19, 7, 31, 0, 0, kyiv).UTC(), events[0].RecordedAt)
}
