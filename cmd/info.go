package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [field]",
		Short: "Show where BrainFrame is installed",
		Long: `Show where BrainFrame is installed.

With a field name only that value is printed, which is handy in scripts:

    cd $(brainframe info install_path)`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.action(func(_ context.Context, cmd *cobra.Command, args []string) error {
			fields := a.settings.Fields()
			names := slices.Sorted(maps.Keys(fields))

			if len(args) == 1 {
				value, ok := fields[args[0]]
				if !ok {
					return errors.Newf(errors.ErrTypeValidation, "unknown field %q", args[0]).
						WithSuggestion("Valid fields: " + strings.Join(names, ", "))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
				return err
			}

			data := pterm.TableData{{"Field", "Value"}}
			for _, name := range names {
				data = append(data, []string{name, fields[name]})
			}
			return pterm.DefaultTable.WithHasHeader(true).WithData(data).WithWriter(cmd.OutOrStdout()).Render()
		}),
	}
}
