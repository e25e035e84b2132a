package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var errNoDB = errors.New("session history needs a database: pass --db or set POSTGRES_HOST")

var historyLimit int

var historyCmd = &cobra.Command{
	Use:         "history [session_id]",
	Short:       "List recorded sampling sessions, or show one session's label log",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"needs-db": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if DB == nil {
			return errNoDB
		}
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID %q: %w", args[0], err)
			}
			return runSessionLog(cmd.Context(), os.Stdout, id)
		}
		return runHistory(cmd.Context(), os.Stdout, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of sessions to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(ctx context.Context, out io.Writer, limit int) error {
	sessions, err := DB.ListSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMMAND\tSOURCE\tEMOTION\tVOTES\tFRAMES\tSKIPPED\tWHEN")
	fmt.Fprintln(w, "--\t-------\t------\t-------\t-----\t------\t-------\t----")

	for _, s := range sessions {
		dominant := string(s.Dominant)
		if dominant == "" {
			dominant = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID, s.Command, s.Source, dominant, s.DominantCount, s.FramesRead, s.FramesSkipped,
			s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSessionLog(ctx context.Context, out io.Writer, id int64) error {
	log, err := DB.GetSessionLog(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", id, err)
	}
	if len(log) == 0 {
		fmt.Fprintf(out, "Session %d has no classified frames.\n", id)
		return nil
	}
	labels := make([]string, len(log))
	for i, e := range log {
		labels[i] = string(e)
	}
	fmt.Fprintln(out, strings.Join(labels, " "))
	return nil
}
