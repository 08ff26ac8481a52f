package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spf13/cobra"

	"github.com/sweeney/flowmouse/internal/config"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Print the task table and the derived resource ceilings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printTasks(os.Stdout, cfg)
		return nil
	},
}

func printTasks(w io.Writer, cfg config.Config) {
	table := cfg.Table()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tPRIO\tPERIOD\tOFFSET\tRESOURCES")
	for _, t := range table.Tasks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", t.Name, t.Priority,
			periodString(uint32(t.Period), cfg.Clock.Frequency), t.Offset, strings.Join(t.Resources, ","))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RESOURCE\tCEILING\tACCESSORS")
	ceilings := table.Ceilings()
	names := maps.Keys(ceilings)
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, ceilings[name], strings.Join(table.Accessors(name), ","))
	}
	tw.Flush()
}

func periodString(ticks, hz uint32) string {
	return fmt.Sprintf("%d (%.1fms)", ticks, float64(ticks)*1000/float64(hz))
}
