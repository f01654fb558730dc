package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd asks a question about one library item.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ask <id> <question...>",
		Short:   "Ask a question about a library item",
		Example: `  skimzy ask 42 "What does the author mean by escape analysis?"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			question := strings.TrimSpace(strings.Join(args[1:], " "))

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/ask-question", AskRequest{LibraryItemID: id, Question: question})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			var answer AskResponse
			if err := resp.Decode(&answer); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, answer)
			}
			fmt.Fprintln(out, answer.Answer)
			if !answer.NoRelevantContent {
				fmt.Fprintf(out, "\n(%d sources)\n", answer.SourceCount)
			}
			return nil
		},
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

// HistoryCmd prints the chat history of a library item.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show questions and answers about a library item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), fmt.Sprintf("/chat-history/%d", id))
			if err != nil {
				return fmt.Errorf("history failed: %w", err)
			}

			var turns []ChatTurn
			if err := resp.Decode(&turns); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, turns)
			}
			if len(turns) == 0 {
				fmt.Fprintln(out, "No questions asked yet.")
				return nil
			}
			for i, turn := range turns {
				if i > 0 {
					fmt.Fprintln(out, strings.Repeat("-", 40))
				}
				fmt.Fprintf(out, "[%s]\nQ: %s\nA: %s\n", turn.CreatedAt, turn.Question, turn.Answer)
			}
			return nil
		},
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}
