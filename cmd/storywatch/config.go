package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storywatch/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage storywatch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.storywatch.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration merged from all sources. Sensitive values
like credentials are masked.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# storywatch configuration file
#
# Every value can also be set with an environment variable prefixed
# with STORYWATCH_, for example STORYWATCH_BOT_TOKEN.

telegram:
  # Bot token from @BotFather (required)
  bot_token: "YOUR_BOT_TOKEN"

  # Telegram API base URL. Leave as-is unless you run a local
  # Bot API server.
  api_base: "https://api.telegram.org"

instagram:
  # Session cookie values. Prefer 'storywatch auth login' over
  # putting these in a file.
  session_id: ""
  csrf_token: ""
  user_agent: ""

monitor:
  # Pause between full monitoring cycles
  check_interval: 5m

  # Pause between accounts within one cycle
  account_delay: 2s

  # Pause after a failed cycle
  recovery_delay: 60s

  # Alert history retention per account
  history_max_entries: 200
  history_max_age_days: 30

storage:
  data_dir: "./data"
  users_file: "users.json"
  alert_states_dir: "alert_states"
  archive_dir: "archive"
  archive_enabled: true

rate_limit:
  requests_per_minute: 60

retry:
  max_attempts: 3
  initial_delay: 1s
  max_delay: 30s
  multiplier: 2.0

logging:
  # debug, info, warn, error
  level: "info"

  # Log file path; empty logs to stderr
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".storywatch.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set your Telegram bot token in the file or STORYWATCH_BOT_TOKEN")
	fmt.Println("  2. Run 'storywatch auth login' to store the Instagram session")
	fmt.Println("  3. Run 'storywatch monitor' to start monitoring")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	masked := *cfg
	masked.Telegram.BotToken = maskValue(cfg.Telegram.BotToken)
	masked.Instagram.SessionID = maskValue(cfg.Instagram.SessionID)
	masked.Instagram.CSRFToken = maskValue(cfg.Instagram.CSRFToken)

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid:\n%w", err)
	}
	fmt.Println("Configuration is valid.")
	return nil
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
