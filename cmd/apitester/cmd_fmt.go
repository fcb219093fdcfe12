package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/sadopc/apitester/internal/core/request"
)

func newFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt [file|-]",
		Short: "Pretty-print a JSON body",
		Long:  "Pretty-print a JSON body read from a file or stdin. Input that is not JSON is rejected.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			if !gjson.ValidBytes(data) {
				return errors.New("input is not valid JSON")
			}
			fmt.Fprintln(cmd.OutOrStdout(), request.FormatBody(string(data)))
			return nil
		},
	}
}
