package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/apitester/internal/ui/picker"
)

func newReplayCmd(g *globalFlags) *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "replay [id|index]",
		Short: "Send a history entry again",
		Long: `Send a history entry again. The entry is picked by ID or by its
position in "history list". Without an argument an interactive picker
is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var ref string
			if len(args) == 1 {
				ref = args[0]
			} else {
				entries := rt.History()
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No requests yet")
					return nil
				}
				rec, ok, err := picker.Run(entries, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				ref = rec.ID
			}

			rec, res, err := rt.Replay(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return printResult(g.printer(cmd), rec, res, out.options())
		},
	}
	out.bind(cmd)
	return cmd
}
