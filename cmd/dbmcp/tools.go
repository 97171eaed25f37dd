package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/server"
)

func newToolsCmd(f *flags) *cobra.Command {
	var (
		query string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured databases would expose",
		Long: `List the tools the configured databases would expose under the active tool
filter. Nothing is connected. --search ranks tools by relevance to a query.`,
		Args: cobra.NoArgs,
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
			results, err := catalog.Search(query, limit)
			if err != nil {
				return err
			}

			title := cases.Title(language.Und)
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAMESPACE\tTOOL\tDESCRIPTION")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", title.String(r.Namespace), r.Name, r.ShortDescription)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d tools\n", len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "Rank tools against a search query")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of tools to list (0 for all)")
	return cmd
}
