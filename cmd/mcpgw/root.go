package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/mcp-gateway/pkg/config"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
)

var (
	Debug      bool
	configFile string

	conf   *config.Config
	logger logging.Logger
)

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"server.addr":            "addr",
	"server.catalog":         "catalog",
	"server.access_key":      "access-key",
	"client.urls":            "url",
	"client.catalog":         "client-catalog",
	"client.batch_discovery": "batch",
	"oracle.api_key":         "api-key",
	"oracle.model":           "model",
	"oracle.timezone":        "timezone",
	"diagnostics.enabled":    "diagnostics",
	"diagnostics.path":       "diagnostics-path",
	"metrics.enabled":        "metrics",
	"log.format":             "log-format",
}

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console, text or json")
	rootCmd.PersistentFlags().Bool("diagnostics", false, "record diagnostic rows")
	rootCmd.PersistentFlags().String("diagnostics-path", "", "diagnostics SQLite database")
	rootCmd.PersistentPreRunE = initConfig
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcpgw",
	Short: "MCP JSON-RPC gateway",
	Long: `mcpgw serves a catalog of MCP items over JSON-RPC and answers goals
by planning over the tools of remote MCP servers.`,
	Example: `mcpgw serve --catalog catalogs/**/*.yaml
mcpgw ask --url http://localhost:8080/mcp "What is on my calendar today?"`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func initConfig(cmd *cobra.Command, args []string) error {
	m, err := config.New("mcpgw", "")
	if err != nil {
		return err
	}
	if err := m.BindFlags(cmd.Flags(), flagKeys); err != nil {
		return err
	}
	c, err := m.Load(configFile)
	if err != nil {
		return err
	}
	if Debug {
		c.Log.Level = "debug"
	}

	conf = c
	logger = initLog(c.Log)
	if configFile != "" {
		logger.Debug("config loaded", logging.String("file", configFile))
	}
	return nil
}
