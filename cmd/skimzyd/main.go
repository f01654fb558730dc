package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skimzy/skimzy/internal/cli"
	"github.com/skimzy/skimzy/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skimzyd",
		Short: "Skimzy daemon and admin CLI",
		Long:  "Skimzy daemon for running the API server and managing users, API keys and reindexing",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.ReindexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
