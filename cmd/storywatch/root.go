package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"storywatch/pkg/config"
)

var (
	// Version information, overridden at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "storywatch",
	Short: "Instagram story monitor with Telegram alerts",
	Long: `Storywatch watches Instagram accounts for new stories and alerts
Telegram subscribers the moment something new goes live.

Features:
  - Subscription management over Telegram commands
  - Duplicate suppression via content fingerprinting
  - Secure credential storage using the system keychain
  - Smart rate limiting to avoid API restrictions
  - Automatic retry with exponential backoff
  - Optional on-disk story archive`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .storywatch.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for durable state")

	rootCmd.SetVersionTemplate(`storywatch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig builds the effective configuration from flags, env, and file.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return config.Load(configFile, flags)
}
