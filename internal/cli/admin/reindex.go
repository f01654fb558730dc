package admin

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <library-item-id>",
		Short: "Rebuild the vector points of a library item",
		Long: `Queue a reindex job for a library item. The running server's worker
picks it up. With --now the item is reindexed in this process instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runReindex,
	}

	cmd.Flags().Bool("now", false, "Reindex synchronously instead of queueing a job")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid library item id: %s", args[0])
	}
	now, _ := cmd.Flags().GetBool("now")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	reindexSvc := a.reindexService()
	out := cmd.OutOrStdout()

	if now {
		if err := reindexSvc.Reindex(ctx, id); err != nil {
			return fmt.Errorf("failed to reindex library item %d: %w", id, err)
		}
		fmt.Fprintf(out, "Library item %d reindexed\n", id)
		return nil
	}

	job, err := reindexSvc.Enqueue(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to queue reindex job: %w", err)
	}
	fmt.Fprintf(out, "Reindex job %s queued for library item %d\n", job.ID, id)
	return nil
}
