package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/dbmcp/adapter/all"
	"github.com/jonwraymond/dbmcp/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = config.DefaultVersion

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and supported database types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dbmcp %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "databases: %v\n", all.Families().Types())
		},
	}
}
