package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/check"
)

func newCheckCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report relations whose target does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			idx, err := rt.cache.Index(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.CheckWorkers
			}
			issues, err := check.Run(cmd.Context(), idx, check.Options{Workers: workers, Log: a.log})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, is := range issues {
				fmt.Fprintln(out, is)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d unresolved relations", len(issues))
			}
			st := idx.Stats()
			fmt.Fprintf(out, "ok: %d words, %d refs, no unresolved relations\n", st.Words, st.Refs)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (default from config, then GOMAXPROCS)")
	return cmd
}
