package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mcp "github.com/ajitpratap0/mcp-gateway"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&versionM, "module", "m", false, "module version information")
}

var versionM bool
var versionCmd = &cobra.Command{
	Use:   "version [-m]",
	Short: "Show the version of mcpgw",
	// config is not needed to print a version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		if versionM {
			fmt.Print(mcp.VersionString(true))
		} else {
			fmt.Printf("mcpgw %s\n", mcp.VersionString(false))
		}
	},
}
