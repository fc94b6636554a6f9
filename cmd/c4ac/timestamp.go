package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/creatorsforacause/datewatch"
)

func (a *app) timestampCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timestamp <unix-ms>",
		Short: "Print the display and tooltip strings for a millisecond timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("c4ac: timestamp: %w", err)
			}
			display, tooltip := datewatch.New(nil, a.renderConfig()).Strings(ms)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", display, tooltip)
			return err
		},
	}
}
