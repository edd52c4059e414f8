package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledsched/internal/pattern"
)

// NewPatternsCmd creates the patterns command with its list and validate subcommands.
func NewPatternsCmd(settings SettingsFunc) *cobra.Command {
	var file string

	library := func() (*pattern.Library, error) {
		path := file
		if path == "" {
			path = settings().LibraryFile
		}
		if path == "" {
			return nil, errors.New("no pattern library file configured")
		}
		return pattern.LoadLibrary(path)
	}

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the pattern library",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "Pattern library file (defaults to patterns.library_file)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List library patterns",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			lib, err := library()
			if err != nil {
				return err
			}
			return writeList(c.OutOrStdout(), lib)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Build every library pattern for the configured strip",
		Long:  `Builds each pattern against the configured LED count and reports every definition that fails.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			lib, err := library()
			if err != nil {
				return err
			}
			count := settings().Driver.Count
			if err := lib.Validate(count); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%d patterns valid for %d leds\n", len(lib.Names()), count)
			return nil
		},
	})

	return cmd
}

func writeList(out io.Writer, lib *pattern.Library) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tREPETITIONS\tINTERRUPTABLE")
	for _, d := range lib.Definitions() {
		kind := fmt.Sprintf("%d steps", len(d.Steps))
		if d.Effect != "" {
			kind = d.Effect
		}
		reps := "forever"
		if d.Repetitions > 0 {
			reps = fmt.Sprint(d.Repetitions)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.Name, kind, reps, d.Interruptable)
	}
	return w.Flush()
}
