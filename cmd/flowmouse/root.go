package main

import (
	"github.com/spf13/cobra"

	"github.com/sweeney/flowmouse/internal/config"
)

var (
	rootOpts = struct {
		config string
	}{}

	rootCmd = &cobra.Command{
		Use:   "flowmouse",
		Short: "Timer-driven HID pointer daemon",
		Long: "flowmouse schedules the scale, toggle, report and heartbeat tasks on a " +
			"priority-ceiling executor and emits HID mouse reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "YAML configuration file (built-in defaults when empty)")
	rootCmd.AddCommand(runCmd, identifyCmd, tasksCmd, stateCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(rootOpts.config)
}
