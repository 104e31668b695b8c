// CLAUDE:SUMMARY CLI entry point for xdswitch: serve runs the daemon, apply/status/tabs/reconcile/journal talk to its API.
// Command xdswitch keeps the Xdebug mode of each site in a Chrome browser in
// sync with the XDEBUG_SESSION / XDEBUG_PROFILE cookies.
//
// Usage:
//
//	xdswitch serve -c xdswitch.yaml           # run the daemon
//	xdswitch tabs                             # list tabs and their modes
//	xdswitch apply <tab-id> debug             # switch a tab's site to debug
//	xdswitch status https://app.test/login    # stored vs observed mode
//	xdswitch hash-token <token>               # bcrypt hash for http.token_hash
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	apiAddr    string
	apiToken   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "xdswitch",
	Short:         "Per-site Xdebug mode switch for Chrome",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to xdswitch.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", env("XDSWITCH_API", "http://127.0.0.1:7717"), "control API base URL for client commands")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("XDSWITCH_TOKEN"), "control API bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(serveCmd, applyCmd, statusCmd, tabsCmd, openCmd, activateCmd, reconcileCmd, journalCmd, hashTokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
