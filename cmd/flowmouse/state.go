package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/flowmouse/internal/app"
	"github.com/sweeney/flowmouse/internal/config"
	"github.com/sweeney/flowmouse/internal/status"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current button and output levels and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Only the GPIO set is needed.
		cfg.Report.Source = config.SourceSynthetic
		cfg.Sinks = nil
		cfg.MQTT.Broker = ""

		hw, err := app.OpenHardware(cfg, nil)
		if err != nil {
			return err
		}
		defer hw.Close()
		return printState(os.Stdout, hw)
	},
}

func printState(w io.Writer, hw *app.Hardware) error {
	up, err := hw.Up.Read()
	if err != nil {
		return fmt.Errorf("read up: %w", err)
	}
	down, err := hw.Down.Read()
	if err != nil {
		return fmt.Errorf("read down: %w", err)
	}
	enable, err := hw.Enable.Read()
	if err != nil {
		return fmt.Errorf("read enable: %w", err)
	}
	out, err := hw.Output.Get()
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}
	fmt.Fprintf(w, "UP: %s, DOWN: %s, ENABLE: %s, OUTPUT: %s\n",
		status.OnOff(up), status.OnOff(down), status.OnOff(enable), status.OnOff(out))
	return nil
}
