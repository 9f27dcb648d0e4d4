// Command stopcast trains one adaptive random forest per bus stop on the
// passenger-count dataset and writes the rounded prequential predictions of
// every stop to predictions_stop_<id>.csv.
//
// The dataset is read from BUS_DATASET_PATH when that file exists and
// downloaded from the configured URL otherwise.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/stopcast/internal/config"
	"github.com/YuminosukeSato/stopcast/pkg/log"
)

var rootCommand = &cobra.Command{
	Use:           "stopcast",
	Short:         "Per-stop passenger count prediction with adaptive random forests.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := log.SetupLogger(cfg.Log.Level, os.Stderr); err != nil {
			return err
		}
		if _, err := log.EnableZerologWarnings(os.Stderr, cfg.Log.Level); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCommand.Flags().StringP("config", "c", "", "configuration file path (yaml, toml or json)")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.GetLogger().Error("stopcast failed", err)
		os.Exit(1)
	}
}
