package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/dbmcp/config"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/server"
)

func newValidateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and tool filter without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := server.New(cfg, server.WithLogger(logging.Nop()), server.WithLookupEnv(f.lookupEnv))
			if err != nil {
				return err
			}
			catalog, err := s.Preview()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", cfg.Name, cfg.Version, transportLabel(cfg))
			for _, db := range cfg.Databases {
				fmt.Fprintf(out, "  database %s\n", db)
			}
			fmt.Fprintln(out, s.Filter().Summary())
			rules := s.Filter().Rules()
			for _, t := range rules.Allow {
				fmt.Fprintf(out, "  allow %s\n", t.Raw)
			}
			for _, t := range rules.Deny {
				fmt.Fprintf(out, "  deny %s\n", t.Raw)
			}
			fmt.Fprintf(out, "%d tools would be published\n", catalog.Len())
			fmt.Fprintln(out, "configuration ok")
			return nil
		},
	}
}

func transportLabel(cfg config.Config) string {
	if cfg.Transport == config.TransportHTTP {
		return fmt.Sprintf("http on %s:%d", cfg.Host, cfg.Port)
	}
	return cfg.Transport
}
