package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/flowmouse/internal/app"
	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/pmw3389"
)

var (
	identifyOpts = struct {
		device string
		cpi    uint16
	}{}

	identifyCmd = &cobra.Command{
		Use:   "identify",
		Short: "Reset the motion sensor and print its identification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Sensor.Device = identifyOpts.device
			}
			if cmd.Flags().Changed("cpi") {
				cfg.Sensor.CPI = identifyOpts.cpi
			}

			counter := clock.NewCycleCounter(cfg.Clock.Frequency)
			counter.Enable()
			sensor, err := app.OpenSensor(cfg, nil, clock.Spinner{Clock: counter, Frequency: counter.Frequency()})
			if err != nil {
				return err
			}
			defer sensor.Close()
			return printIdentity(os.Stdout, sensor.Device)
		},
	}
)

func init() {
	identifyCmd.Flags().StringVarP(&identifyOpts.device, "device", "d", "", "spidev node, overrides sensor.device")
	identifyCmd.Flags().Uint16Var(&identifyOpts.cpi, "cpi", 0, "resolution to program before reading back")
}

func printIdentity(w io.Writer, dev *pmw3389.Device) error {
	pid, err := dev.ProductID()
	if err != nil {
		return err
	}
	rev, err := dev.Revision()
	if err != nil {
		return err
	}
	cpi, err := dev.CPI()
	if err != nil {
		return err
	}
	squal, err := dev.ReadRegister(pmw3389.RegSQUAL)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "product: 0x%02x\nrevision: 0x%02x\ncpi: %d\nsqual: %d\nstate: %s\n", pid, rev, cpi, squal, dev.State())
	return nil
}
