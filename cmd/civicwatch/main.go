// Command civicwatch serves incident-report analytics and remediation over
// MCP and JSON-RPC.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "civicwatch",
	Short:         "Incident report analytics and remediation",
	Long:          color.CyanString("civicwatch") + "\nLive counts, hotspots and trends over civic incident reports, with guarded cleanup.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("civicwatch %s\n", app.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
