package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/revittco/mcpgate/internal/store"
	"github.com/revittco/mcpgate/internal/store/sqlite"
)

type auditOptions struct {
	db string
}

func newAuditCmd() *cobra.Command {
	opts := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	cmd.PersistentFlags().StringVar(&opts.db, "db", "", "audit database path (default $MCPGATE_AUDIT_DB or ~/.mcpgate/audit.db)")
	cmd.AddCommand(newAuditListCmd(opts), newAuditStatsCmd(opts), newAuditPruneCmd(opts))
	return cmd
}

// open resolves the database path from the flag, the environment, then
// the default location.
func (o *auditOptions) open(ctx context.Context) (*sqlite.DB, error) {
	path := o.db
	if path == "" {
		settings, err := loadSettings()
		if err != nil {
			return nil, err
		}
		path = settings.AuditDB
	}
	if path == "" {
		path = defaultDataPath("audit.db")
	}
	db, err := sqlite.New(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return db, nil
}

func newAuditListCmd(opts *auditOptions) *cobra.Command {
	var (
		tool, status, method string
		since                time.Duration
		limit                int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recent audit records as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			db, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			f := store.AuditFilter{Limit: limit}
			if tool != "" {
				f.ToolName = &tool
			}
			if status != "" {
				f.Status = &status
			}
			if method != "" {
				f.Method = &method
			}
			if since > 0 {
				after := time.Now().Add(-since)
				f.After = &after
			}
			recs, _, err := db.QueryAuditRecords(ctx, f)
			if err != nil {
				return fmt.Errorf("query audit records: %w", err)
			}
			return writeJSONLines(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&tool, "tool", "", "filter by tool, resource URI or prompt name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (success, error)")
	cmd.Flags().StringVar(&method, "method", "", "filter by MCP method")
	cmd.Flags().DurationVar(&since, "since", 0, "only records newer than this")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to print")
	return cmd
}

func newAuditStatsCmd(opts *auditOptions) *cobra.Command {
	var since time.Duration
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate latency, error and cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			db, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			before := time.Now()
			after := before.Add(-since)
			stats, err := db.GetAuditStats(ctx, after, before)
			if err != nil {
				return fmt.Errorf("audit stats: %w", err)
			}
			board, err := db.GetToolLeaderboard(ctx, after, before, top)
			if err != nil {
				return fmt.Errorf("tool leaderboard: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Since string                       `json:"since"`
				Stats *store.AuditStats            `json:"stats"`
				Tools []store.ToolLeaderboardEntry `json:"tools"`
			}{since.String(), stats, board})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "window to aggregate over")
	cmd.Flags().IntVar(&top, "top", 10, "number of tools to rank")
	return cmd
}

func newAuditPruneCmd(opts *auditOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit records older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			db, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := db.PruneAuditRecords(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("prune audit records: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit records older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")
	return cmd
}

func writeJSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for i := range items {
		if err := enc.Encode(&items[i]); err != nil {
			return err
		}
	}
	return nil
}
