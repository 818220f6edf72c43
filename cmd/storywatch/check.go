package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storywatch/pkg/capture"
	"storywatch/pkg/fingerprint"
	"storywatch/pkg/logger"
)

var checkSave string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check one account for an active story",
	Long: `Fetch the newest active story for a single Instagram account and
print its fingerprint. Alert history is not consulted or updated, so
this never affects what the monitor will report as new.`,
	Example: `  # Check whether an account has a live story
  storywatch check instagram

  # Check and save the story media to a file
  storywatch check instagram --save story.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkSave, "save", "", "write the story media to this file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	capturer, err := buildCapturer(cfg, log)
	if err != nil {
		return err
	}

	account := args[0]
	item, err := capturer.Capture(cmd.Context(), account)
	if capture.IsNoStory(err) {
		fmt.Printf("No active story for @%s\n", account)
		return nil
	}
	if err != nil {
		return fmt.Errorf("check failed for @%s: %w", account, err)
	}

	fp := fingerprint.New(item.SnapshotBytes, item.MediaBytes)
	fmt.Printf("Active story for @%s\n", account)
	fmt.Printf("  Type:       %s\n", item.Kind)
	fmt.Printf("  Taken at:   %s\n", item.TakenAt.UTC().Format(time.RFC3339))
	fmt.Printf("  Snapshot:   %s\n", fp.Snapshot)
	if fp.Media != "" {
		fmt.Printf("  Media:      %s (%d bytes)\n", fp.Media, len(item.MediaBytes))
	} else {
		fmt.Println("  Media:      unavailable")
	}

	if checkSave != "" {
		if len(item.MediaBytes) == 0 {
			return fmt.Errorf("no media downloaded for @%s", account)
		}
		if err := os.WriteFile(checkSave, item.MediaBytes, 0644); err != nil {
			return fmt.Errorf("failed to save media: %w", err)
		}
		fmt.Printf("  Saved to:   %s\n", checkSave)
	}
	return nil
}
