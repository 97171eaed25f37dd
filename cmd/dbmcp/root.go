package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/dbmcp/config"
)

// flags holds the options shared by every subcommand. They override the
// values loaded from the configuration file.
type flags struct {
	configPath string
	transport  string
	host       string
	port       int
	toolFilter string
	databases  []string
	logLevel   string

	lookupEnv func(string) (string, bool)
}

func newRootCmd() *cobra.Command {
	f := &flags{lookupEnv: os.LookupEnv}

	root := &cobra.Command{
		Use:   "dbmcp",
		Short: "db-mcp - database gateway for the Model Context Protocol",
		Long: `db-mcp exposes databases to MCP clients. Each configured database becomes a set
of tools named <prefix>_<operation>, plus schema resources and prompts.

With no subcommand, dbmcp serves.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Configuration file (default $"+config.EnvConfig+")")
	pf.StringVar(&f.transport, "transport", "", "Transport: stdio or http")
	pf.StringVar(&f.host, "host", "", "HTTP listen host")
	pf.IntVarP(&f.port, "port", "p", 0, "HTTP listen port")
	pf.StringVar(&f.toolFilter, "tool-filter", "", "Tool filter expression, e.g. \"-sqlite_write_query\"")
	pf.StringArrayVar(&f.databases, "db", nil, "Database as TYPE=CONNECTION (repeatable)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(f),
		newToolsCmd(f),
		newValidateCmd(f),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves the configuration file and applies flag overrides.
func (f *flags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(f.configPath, f.lookupEnv)
	if err != nil {
		return config.Config{}, err
	}

	set := cmd.Flags()
	if set.Changed("transport") {
		cfg.Transport = f.transport
	}
	if set.Changed("host") {
		cfg.Host = f.host
	}
	if set.Changed("port") {
		cfg.Port = f.port
	}
	if set.Changed("tool-filter") {
		cfg.ToolFilter = f.toolFilter
	}
	if set.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	for _, d := range f.databases {
		db, err := config.ParseDatabase(d)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Databases = append(cfg.Databases, db)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
