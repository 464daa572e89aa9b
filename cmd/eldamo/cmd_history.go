package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/db"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent document loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.HistoryDB == "" {
				return fmt.Errorf("no history_db configured")
			}
			conn, err := db.Open(a.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer conn.Close()

			loads, err := db.RecentLoads(conn, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tDOCUMENT\tWORDS\tREFS\tDURATION\tRESULT")
			for _, l := range loads {
				result := "ok"
				if !l.Succeeded() {
					result = l.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
					l.StartedAt.Local().Format(time.DateTime), l.DocumentVersion, l.Words, l.Refs,
					l.Duration.Round(time.Millisecond), result)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of loads to show")
	return cmd
}
