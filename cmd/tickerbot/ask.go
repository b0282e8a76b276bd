package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Run a chat command locally, e.g. tickerbot ask '!stock AAPL'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(false)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			reply, ok := a.Router.Handle(cmd.Context(), text)
			if !ok {
				return fmt.Errorf("%q is not a command, try %shelp", text, a.Router.Prefix())
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
