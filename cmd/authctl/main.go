package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/org/memberauth/internal/password"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var rootCmd = &cobra.Command{
	Use:   "authctl",
	Short: "memberauth CLI",
	Long:  "A CLI for signing in to memberauth and operating its session-security state.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

var stdin io.Reader = os.Stdin

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(passwdCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(sysCmd())
}

// prompt reads one line from stdin after printing label to stderr.
func prompt(label string) string {
	fmt.Fprint(stderr, label)
	scanner := bufio.NewScanner(stdin)
	scanner.Scan()
	return strings.TrimRight(scanner.Text(), "\r\n")
}

// --- session ---

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and store the issued token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := cfg.Username
			if len(args) > 0 {
				username = args[0]
			}
			if username == "" {
				username = prompt("Username: ")
			}
			pw, _ := cmd.Flags().GetString("password")
			if pw == "" {
				pw = prompt("Password: ")
			}

			client := newClient()
			client.token = ""
			result, err := client.post("/api/v1/auth/login", map[string]any{
				"username": username,
				"password": pw,
			})
			if err != nil {
				printError(err.Error())
				return nil
			}

			cfg.Token, _ = result["token"].(string)
			cfg.Username = username
			if err := saveConfig(); err != nil {
				printError("token issued but not saved: " + err.Error())
			}
			delete(result, "token")
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("password", "", "Password (prompted when empty)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if _, err := client.post("/api/v1/auth/logout", nil); err != nil {
				printError(err.Error())
				return nil
			}
			cfg.Token = ""
			if err := saveConfig(); err != nil {
				printError(err.Error())
				return nil
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the principal of the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get("/api/v1/auth/me")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func passwdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password (the current token is revoked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			oldPw, _ := cmd.Flags().GetString("old")
			if oldPw == "" {
				oldPw = prompt("Current password: ")
			}
			newPw, _ := cmd.Flags().GetString("new")
			if newPw == "" {
				newPw = prompt("New password: ")
			}
			client := newClient()
			if _, err := client.put("/api/v1/auth/password", map[string]any{
				"old_password": oldPw,
				"new_password": newPw,
			}); err != nil {
				printError(err.Error())
				return nil
			}
			cfg.Token = ""
			saveConfig() //nolint:errcheck
			printSuccess("Password changed; run 'authctl login' again")
			return nil
		},
	}
	cmd.Flags().String("old", "", "Current password (prompted when empty)")
	cmd.Flags().String("new", "", "New password (prompted when empty)")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for seeding identity records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) > 0 {
				raw = args[0]
			} else {
				raw = prompt("Password: ")
			}
			cost, _ := cmd.Flags().GetInt("cost")
			hash, err := password.New(cost).Hash(raw)
			if err != nil {
				return err
			}
			printSuccess(hash)
			return nil
		},
	}
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

// --- sys ---

func sysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sys", Short: "Operator commands (require an operator token)"}

	revocationsCmd := &cobra.Command{
		Use:   "revocations",
		Short: "Show or clear the token revocation store",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
				if err := client.delete("/api/v1/sys/revocations"); err != nil {
					printError(err.Error())
					return nil
				}
				printSuccess("Revocation store cleared")
				return nil
			}
			result, err := client.get("/api/v1/sys/revocations")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	revocationsCmd.Flags().Bool("clear", false, "Drop every revoked token")

	lockoutCmd := &cobra.Command{
		Use:   "lockout <username>",
		Short: "Show or clear the failed-login state of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/sys/lockouts/" + url.PathEscape(args[0])
			client := newClient()
			if unlock, _ := cmd.Flags().GetBool("unlock"); unlock {
				if err := client.delete(path); err != nil {
					printError(err.Error())
					return nil
				}
				printSuccess("Unlocked " + args[0])
				return nil
			}
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	lockoutCmd.Flags().Bool("unlock", false, "Reset the failure counter and lift any lock")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List recent authentication events",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if u, _ := cmd.Flags().GetString("username"); u != "" {
				q.Set("username", u)
			}
			if since, _ := cmd.Flags().GetString("since"); since != "" {
				q.Set("since", since)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			q.Set("limit", strconv.Itoa(limit))

			result, err := newClient().get("/api/v1/sys/auth-events?" + q.Encode())
			if err != nil {
				printError(err.Error())
				return nil
			}
			printEvents(result)
			return nil
		},
	}
	eventsCmd.Flags().String("username", "", "Only events for this username")
	eventsCmd.Flags().String("since", "", "Only events at or after this RFC3339 time")
	eventsCmd.Flags().Int("limit", 50, "Maximum number of events")

	cmd.AddCommand(revocationsCmd, lockoutCmd, eventsCmd)
	return cmd
}
