// Command flowmouse runs the timer-driven pointer firmware on a Linux host:
// a fixed-priority task set that adjusts a scale factor from two buttons,
// toggles an indicator at a scaled period and emits HID mouse reports built
// from a PMW3389 motion sensor or a synthetic pattern.
package main

import "log"

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
