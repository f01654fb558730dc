package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Sign up, log in, log out, and check authentication status for the skimzy CLI",
	}

	cmd.AddCommand(AuthSignupCmd())
	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthSignupCmd registers a new account and stores its first API key.
func AuthSignupCmd() *cobra.Command {
	var (
		apiURL string
		name   string
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Long:  "Create an account on the server and save the returned API key to the global config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithConfig("", apiURL)
			resp, err := api.Post(cmd.Context(), "/signup", map[string]string{"email": args[0], "name": name})
			if err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}

			var created struct {
				UserID int64  `json:"user_id"`
				Email  string `json:"email"`
				Token  string `json:"token"`
			}
			if err := resp.Decode(&created); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account created for %s (user %d)\n", created.Email, created.UserID)
			if noSave {
				fmt.Fprintf(out, "Token: %s\n", created.Token)
				fmt.Fprintln(out, "\nSave this token now. You won't be able to see it again!")
				return nil
			}
			if err := SaveCredentials(Credentials{APIKey: created.Token, APIURL: apiURL, Email: created.Email}); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Fprintln(out, "Credentials saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Print the API key instead of saving it")

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with API key",
		Long:  "Store the API key and URL in the user config directory (skimzy/credentials.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (skz_...)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and clear credentials",
		Long:  "Remove saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteCredentials(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display current authentication source and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAuthStatus(cmd.OutOrStdout(), outputJSON)
		},
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runAuthLogin(in io.Reader, out io.Writer, apiKey, apiURL string) error {
	if apiKey == "" {
		fmt.Fprint(out, "Enter API key: ")
		input, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
	}

	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: skz_ + 64 hex characters)")
	}

	if err := SaveCredentials(Credentials{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged in")
	return nil
}

func runAuthStatus(out io.Writer, outputJSON bool) error {
	creds, err := ResolveCredentials("", "")
	if err != nil {
		return err
	}
	authenticated := creds.Source != SourceNone

	if outputJSON {
		status := map[string]any{
			"authenticated": authenticated,
			"source":        string(creds.Source),
			"api_url":       creds.APIURL,
		}
		if authenticated {
			status["api_key"] = maskAPIKey(creds.APIKey)
		}
		return printJSON(out, status)
	}

	if !authenticated {
		fmt.Fprintln(out, "Not authenticated")
		fmt.Fprintln(out, "Run 'skimzy auth login' or 'skimzy auth signup' to authenticate")
		return nil
	}

	fmt.Fprintf(out, "Authenticated: yes\n")
	fmt.Fprintf(out, "Source: %s\n", creds.Source)
	fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(creds.APIKey))
	fmt.Fprintf(out, "API URL: %s\n", creds.APIURL)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
