package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/export"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show, export or clear past requests",
	}
	cmd.AddCommand(newHistoryListCmd(g))
	cmd.AddCommand(newHistoryShowCmd(g))
	cmd.AddCommand(newHistoryClearCmd(g))
	cmd.AddCommand(newHistoryExportCmd(g))
	return cmd
}

func newHistoryListCmd(g *globalFlags) *cobra.Command {
	var (
		search string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var entries []request.Record
			if search != "" {
				entries = rt.SearchHistory(search)
			} else {
				entries = rt.History()
			}

			if asJSON {
				if entries == nil {
					entries = []request.Record{}
				}
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			g.printer(cmd).History(entries)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show entries whose URL contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newHistoryShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|index>",
		Short: "Show one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.Resolve(args[0])
			if err != nil {
				return err
			}
			g.printer(cmd).Record(rec)
			return nil
		},
	}
}

func newHistoryClearCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.ClearHistory()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

func newHistoryExportCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <id|index>",
		Short: "Export a history entry as a curl command or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "curl" && format != "json" {
				return fmt.Errorf("invalid format %q (must be curl or json)", format)
			}

			rt, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.Resolve(args[0])
			if err != nil {
				return err
			}

			out := export.AsCurl(rec)
			if format == "json" {
				if out, err = export.AsJSON(rec); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "curl", "Output format: curl or json")
	return cmd
}
