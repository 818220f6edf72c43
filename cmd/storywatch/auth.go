package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"storywatch/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage the stored Instagram session securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store Instagram session credentials securely",
	Long: `Store the Instagram session securely in the system keychain or an
encrypted file.

You will be prompted for:
  - Session ID (from the sessionid cookie)
  - CSRF Token (from the csrftoken cookie)
  - User Agent (optional, press Enter for default)

To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Find and copy the sessionid and csrftoken values`,
	RunE: runLogin,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Long:  `Show the stored Instagram session with sensitive values masked.`,
	RunE:  runStatus,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	if manager.Exists() {
		fmt.Print("A session is already stored. Replace it? (y/N): ")
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Println("🔐 Enter your cookie values (they will be hidden as you type):")
	fmt.Println()

	var sessionID string
	for {
		fmt.Print("sessionid cookie value: ")
		sessionID, err = readPassword()
		if err != nil {
			return fmt.Errorf("failed to read session ID: %w", err)
		}
		if len(sessionID) < 20 || !strings.Contains(sessionID, "%") {
			fmt.Println("\n❌ That doesn't look like a valid sessionid.")
			fmt.Println("   It should be a long string containing % symbols.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				return errors.New("login cancelled")
			}
			continue
		}
		break
	}

	var csrfToken string
	for {
		fmt.Print("\ncsrftoken cookie value: ")
		csrfToken, err = readPassword()
		if err != nil {
			return fmt.Errorf("failed to read CSRF token: %w", err)
		}
		if len(csrfToken) < 20 || len(csrfToken) > 50 {
			fmt.Println("\n❌ That doesn't look like a valid csrftoken.")
			fmt.Println("   It should be around 32 characters long.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				return errors.New("login cancelled")
			}
			continue
		}
		break
	}

	fmt.Print("\n🌐 User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	creds := &auth.Credentials{
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Save(creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Println("✅ Credentials stored successfully!")
	fmt.Println("\nNext steps:")
	fmt.Println("  storywatch check <instagram_username>   # verify the session works")
	fmt.Println("  storywatch monitor                      # start the monitor")
	fmt.Println("\n⚠️  Never share your credentials or config files!")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.Load()
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		fmt.Println("No stored session. Use 'storywatch auth login' to add one.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	sanitized := auth.Sanitize(creds)
	fmt.Println("Stored Instagram session:")
	fmt.Printf("  Session ID: %s\n", sanitized.SessionID)
	fmt.Printf("  CSRF Token: %s\n", sanitized.CSRFToken)
	if sanitized.UserAgent != "" {
		fmt.Printf("  User Agent: %s\n", sanitized.UserAgent)
	}
	if !sanitized.UpdatedAt.IsZero() {
		fmt.Printf("  Updated:    %s\n", sanitized.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if !manager.Exists() {
		fmt.Println("No stored session.")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Remove the stored session? (y/N): ")
	input, _ := reader.ReadString('\n')
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
		return nil
	}

	if err := manager.Delete(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	fmt.Println("✅ Session removed.")
	return nil
}

// readPassword reads a value from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
