package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/domain/outage"
	repository "github.com/oshokin/outage-watch/internal/repository/state"
)

// historyAll shows every event instead of the last day.
//
//nolint:gochecknoglobals // Cobra flag storage.
var historyAll bool

// historyCmd prints the recorded events of one address.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var historyCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Print the recorded power events of an address.",
	Long: `Reads the history file and prints the events of the address as YAML.
Only the last 24 hours are shown unless --all is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		repo := repository.NewFileRepository(cfg.HistoryFile, cfg.RenderedFile, repository.WithLocation(cfg.Location()))

		history, err := repo.LoadHistory(ctx)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		events := history.Events(args[0])
		if !historyAll {
			events = outage.Recent(events, time.Now(), outage.VisualizationSpan)
		}

		out, err := yaml.Marshal(toHistoryView(args[0], events, cfg.Location()))
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(out)

		return err
	},
}

// historyView is the printed document.
type historyView struct {
	Address string      `yaml:"address"`
	Events  []eventView `yaml:"events"`
}

// eventView is one printed event.
type eventView struct {
	Kind       string `yaml:"kind"`
	At         string `yaml:"at"`
	Since      string `yaml:"since"`
	RecordedAt string `yaml:"recorded_at"`
}

// toHistoryView renders times in the configured zone.
func toHistoryView(address string, events []outage.Event, loc *time.Location) historyView {
	view := historyView{
		Address: address,
		Events:  make([]eventView, 0, len(events)),
	}

	for _, event := range events {
		view.Events = append(view.Events, eventView{
			Kind:       event.Kind.String(),
			At:         event.At,
			Since:      event.Since.In(loc).Format(time.RFC3339),
			RecordedAt: event.RecordedAt.In(loc).Format(time.RFC3339),
		})
	}

	return view
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "show the whole history")
}
