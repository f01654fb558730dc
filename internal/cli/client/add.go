package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// AddCmd ingests a web page or a local PDF.
func AddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url|file.pdf>",
		Short: "Generate study material from a URL or PDF",
		Long: `Send a web page URL or a local PDF to the server. The server extracts the
text, generates a summary, flashcards and multiple-choice questions, and
indexes the document for questions.`,
		Example: `  skimzy add https://go.dev/doc/effective_go
  skimzy add ./lecture-notes.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: runAdd,
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	target := args[0]

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp *APIResponse
	if isURL(target) {
		resp, err = api.Post(cmd.Context(), "/generate-from-url", map[string]string{"url": target})
	} else {
		resp, err = uploadPDF(cmd, api, target)
	}
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	var item LibraryItem
	if err := resp.Decode(&item); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, item)
	}
	printItem(out, &item, false)
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func uploadPDF(cmd *cobra.Command, api *APIClient, path string) (*APIResponse, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%s is neither an http(s) URL nor a .pdf file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return api.PostFile(cmd.Context(), "/upload-pdf", "file", filepath.Base(path), "application/pdf", f)
}

// printItem writes a human-readable view of an item. Full adds the
// flashcards and questions.
func printItem(w io.Writer, item *LibraryItem, full bool) {
	fmt.Fprintf(w, "%s\n", item.Title)
	fmt.Fprintf(w, "ID: %d  Source: %s  Index: %s\n", item.ID, item.Source, item.IndexStatus)
	fmt.Fprintf(w, "\n%s\n", item.Summary)

	if !full {
		fmt.Fprintf(w, "\n%d flashcards, %d questions, %d chunks indexed\n", len(item.Flashcards), len(item.MCQs), item.ChunkCount)
		return
	}

	if len(item.Flashcards) > 0 {
		fmt.Fprintf(w, "\nFlashcards\n%s\n", strings.Repeat("-", 40))
		for i, fc := range item.Flashcards {
			fmt.Fprintf(w, "%d. Q: %s\n   A: %s\n", i+1, fc.Question, fc.Answer)
		}
	}
	if len(item.MCQs) > 0 {
		fmt.Fprintf(w, "\nQuestions\n%s\n", strings.Repeat("-", 40))
		for i, q := range item.MCQs {
			fmt.Fprintf(w, "%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				marker := " "
				if opt == q.Answer {
					marker = "*"
				}
				fmt.Fprintf(w, "   %s %c) %s\n", marker, 'a'+j, opt)
			}
		}
	}
}
