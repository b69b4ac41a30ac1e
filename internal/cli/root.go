// Package cli implements the coopsched command line.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"coopsched/internal/log"
	"coopsched/internal/sched"
)

// NewRootCmd builds the coopsched command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "coopsched",
		Short:         "cooperative priority scheduler demo",
		Long:          "coopsched runs prioritized callbacks in deadline-bounded turns of a host event loop.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	// "run"
	rootCmd.AddCommand(newRunCmd(&configPath))
	// "config"
	rootCmd.AddCommand(newConfigCmd(&configPath))

	return rootCmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sched.Load(*configPath)
			if err != nil {
				return err
			}

			out, err := cfg.Marshal()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}

// newLogger honours log_output, falling back to the command's stderr.
func newLogger(cmd *cobra.Command, cfg sched.Config) (log.Logger, error) {
	if cfg.LogOutput != "" {
		return log.NewLogger(cfg.LogLevel, cfg.LogOutput)
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return log.Logger{}, err
	}

	return log.NewWriterLogger(lvl, cmd.ErrOrStderr()), nil
}
