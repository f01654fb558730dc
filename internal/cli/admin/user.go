package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skimzy/skimzy/internal/service"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userGetCmd())

	return cmd
}

func userCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user and its first API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			outputFormat, _ := cmd.Flags().GetString("output")

			return withAuthService(ctx, func(authSvc *service.AuthService) error {
				user, token, err := authSvc.Signup(ctx, args[0], name)
				if err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}

				out := cmd.OutOrStdout()
				if outputFormat == "json" {
					return printJSON(out, map[string]any{
						"id":         user.ID,
						"email":      user.Email,
						"name":       user.Name,
						"created_at": user.CreatedAt,
						"token":      token,
					})
				}
				fmt.Fprintf(out, "User created: %s (id: %d)\n", user.Email, user.ID)
				fmt.Fprintf(out, "Token: %s\n", token)
				fmt.Fprintln(out, "\nSave this token now. You won't be able to see it again!")
				return nil
			})
		},
	}

	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func userGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <email>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			outputFormat, _ := cmd.Flags().GetString("output")

			return withAuthService(ctx, func(authSvc *service.AuthService) error {
				user, err := authSvc.GetUserByEmail(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get user: %w", err)
				}

				out := cmd.OutOrStdout()
				if outputFormat == "json" {
					return printJSON(out, user)
				}
				fmt.Fprintf(out, "ID: %d\nEmail: %s\nName: %s\nCreated: %s\n",
					user.ID, user.Email, user.Name, user.CreatedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}
