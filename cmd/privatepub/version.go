package main

import (
	"fmt"

	"github.com/privatepub/privatepub/common"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "privatepub %s\n%s\n", common.AppVersion.Shortline(), common.AppVersion.ChangelogURL())
		},
	}
}
