package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/outage-watch/internal/config"
	"github.com/oshokin/outage-watch/internal/service/common"
)

// errNoTriggerAddress is returned when neither the argument nor the config name a gRPC address.
var errNoTriggerAddress = errors.New("no gRPC address: pass one or set grpc_addr")

// checkCmd asks a running watcher for an immediate cycle.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var checkCmd = &cobra.Command{
	Use:   "check [grpc-address]",
	Short: "Ask a running watcher to poll now.",
	Long: `Calls CheckNow on a running watcher and prints the cycle report.
The address defaults to grpc_addr from the configuration file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		address := cfg.GRPCAddress
		if len(args) > 0 {
			address = args[0]
		}

		if address == "" {
			return errNoTriggerAddress
		}

		actor, err := common.DetectActor()
		if err != nil {
			return fmt.Errorf("detect actor: %w", err)
		}

		// A cycle may wait for the running one, so allow two timeouts.
		client, err := common.Dial(ctx, address, common.WithCallTimeout(2*cfg.Timeout+cfg.PollInterval))
		if err != nil {
			return err
		}

		defer func() {
			_ = client.Close()
		}()

		report, err := client.CheckNow(ctx, actor)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), protojson.MarshalOptions{Multiline: true}.Format(report))

		return err
	},
}
