// Package commands wires the staffplan CLI: a long-running API server with
// its schedule worker, plus one-shot staffing calculations.
package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"staffplan/internal/buildinfo"
	"staffplan/internal/config"
	"staffplan/internal/logging"
)

var (
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "staffplan",
	Short: "staffplan sizes contact-center staff and builds shift rosters",
	Long: `staffplan answers two questions for a contact center: how many agents
each interval needs (Erlang B, C, A and X staffing models) and which shifts
cover that demand (schedule runs against per-interval coverage requirements).`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Verbose = true
		}
		logging.Init(cfg.Verbose, cfg.LogDir)
		log.Debug().Str("version", buildinfo.Version).Msg("configuration loaded")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, calcCmd, versionCmd)
}
