package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/source"
)

func newDownloadCmd(a *app) *cobra.Command {
	var out string
	var force bool
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save a local copy of the document",
		Long: `download fetches the document from the configured URL (or --source) into
a local file, which can then be used as a file source with --watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.IsRemote() {
				return fmt.Errorf("download needs a URL source, got %s", a.cfg.Source)
			}
			client := &http.Client{Timeout: a.cfg.HTTPTimeout}
			if force {
				err := source.Download(cmd.Context(), client, a.cfg.Source, out)
				if err != nil {
					return err
				}
			} else if err := source.EnsureDocument(cmd.Context(), client, a.cfg.Source, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document available at %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "eldamo-data.xml", "destination file")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	return cmd
}
