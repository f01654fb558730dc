package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skimzy/skimzy/internal/service"
)

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

// withAuthService runs fn against an AuthService backed by the configured database.
func withAuthService(ctx context.Context, fn func(*service.AuthService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := getDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	a := &app{cfg: cfg, pool: pool}
	return fn(a.authService())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a user identified by email",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("user", "u", "", "User email (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	return withAuthService(ctx, func(authSvc *service.AuthService) error {
		user, err := authSvc.GetUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("user not found: %s", email)
		}

		token, err := authSvc.CreateAPIKey(ctx, user.ID, name)
		if err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, map[string]any{
				"user_id": user.ID,
				"name":    name,
				"token":   token,
			})
		}
		fmt.Fprintf(out, "API key created for %s (user %d)\n", user.Email, user.ID)
		fmt.Fprintf(out, "Key Name: %s\n", name)
		fmt.Fprintf(out, "Token: %s\n", token)
		fmt.Fprintln(out, "\nSave this token now. You won't be able to see it again!")
		return nil
	})
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a user",
		RunE:  runAPIKeyList,
	}

	cmd.Flags().StringP("user", "u", "", "User email (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	outputFormat, _ := cmd.Flags().GetString("output")

	return withAuthService(ctx, func(authSvc *service.AuthService) error {
		user, err := authSvc.GetUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("user not found: %s", email)
		}

		keys, err := authSvc.ListAPIKeys(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list API keys: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			data := make([]map[string]any, len(keys))
			for i, key := range keys {
				data[i] = map[string]any{
					"id":         key.ID,
					"name":       key.Name,
					"user_id":    key.UserID,
					"created_at": key.CreatedAt,
					"revoked_at": key.RevokedAt,
					"status":     key.Status(),
				}
			}
			return printJSON(out, map[string]any{"items": data})
		}

		if len(keys) == 0 {
			fmt.Fprintf(out, "No API keys found for %s\n", user.Email)
			return nil
		}
		fmt.Fprintf(out, "API keys for %s:\n", user.Email)
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %s (%s, created: %s)\n", key.ID, key.Name, key.Status(), key.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	})
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	keyID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	return withAuthService(ctx, func(authSvc *service.AuthService) error {
		if err := authSvc.RevokeAPIKey(ctx, keyID); err != nil {
			return fmt.Errorf("failed to revoke API key: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, map[string]any{"id": keyID, "revoked": true})
		}
		fmt.Fprintf(out, "API key %s revoked successfully\n", keyID)
		return nil
	})
}
