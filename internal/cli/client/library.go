package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid library item id: %s", s)
	}
	return id, nil
}

// LibraryCmd groups the commands that read and manage stored items.
func LibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Browse and manage your library",
	}

	cmd.AddCommand(libraryListCmd())
	cmd.AddCommand(libraryGetCmd())
	cmd.AddCommand(libraryDeleteCmd())
	cmd.AddCommand(librarySourceCmd())
	cmd.AddCommand(libraryReindexCmd())

	return cmd
}

func libraryListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				query.Set("cursor", cursor)
			}

			resp, err := api.Get(cmd.Context(), "/library?"+query.Encode())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var page LibraryPage
			if err := resp.Decode(&page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, page)
			}

			if len(page.Items) == 0 {
				fmt.Fprintln(out, "No items found.")
				return nil
			}
			for _, item := range page.Items {
				fmt.Fprintf(out, "%d\t%s\t[%s, %s]\t%s\n", item.ID, item.Title, item.ContentType, item.IndexStatus, item.CreatedAt)
			}
			if page.HasMore && page.Cursor != "" {
				fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
				fmt.Fprintf(out, "More results available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func libraryGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an item with its flashcards and questions",
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

			resp, err := api.Get(cmd.Context(), fmt.Sprintf("/library/%d", id))
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			var item LibraryItem
			if err := resp.Decode(&item); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, item)
			}
			printItem(out, &item, true)
			return nil
		},
	}

	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func libraryDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item, its chat history and its indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete(cmd.Context(), fmt.Sprintf("/library/%d", id)); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Library item %d deleted\n", id)
			return nil
		},
	}

	return cmd
}

func librarySourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source <id>",
		Short: "Print or download the stored PDF of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("out")
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), fmt.Sprintf("/library/%d/source", id))
			if err != nil {
				return fmt.Errorf("source failed: %w", err)
			}

			var source struct {
				DownloadURL string `json:"download_url"`
			}
			if err := resp.Decode(&source); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath == "" {
				fmt.Fprintln(out, source.DownloadURL)
				return nil
			}

			errOut := cmd.ErrOrStderr()
			err = api.DownloadFileWithProgress(cmd.Context(), source.DownloadURL, outputPath, func(current, total int64) {
				if total > 0 {
					fmt.Fprintf(errOut, "\rDownloading... %d%%", current*100/total)
				}
			})
			fmt.Fprintln(errOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Download the PDF to this path instead of printing the link")

	return cmd
}

func libraryReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <id>",
		Short: "Queue a rebuild of an item's indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), fmt.Sprintf("/library/%d/reindex", id), nil)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}

			var job struct {
				JobID  string `json:"job_id"`
				Status string `json:"status"`
			}
			if err := resp.Decode(&job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reindex job %s %s\n", job.JobID, job.Status)
			return nil
		},
	}

	return cmd
}
