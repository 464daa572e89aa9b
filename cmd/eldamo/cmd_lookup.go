package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

func newLookupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up a word, page, reference or phonetic rule",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "word <language> <spelling>",
			Short: "Find a word by language and spelling",
			Args:  cobra.ExactArgs(2),
			RunE: a.withIndex(func(out io.Writer, idx *eldamo.Index, args []string) error {
				w, err := idx.FindByKey(eldamo.Key{Language: eldamo.Language(args[0]), Verbum: args[1]})
				if err != nil {
					return err
				}
				printWord(out, idx, w)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "id <page-id>",
			Short: "Find a word by page id",
			Args:  cobra.ExactArgs(1),
			RunE: a.withIndex(func(out io.Writer, idx *eldamo.Index, args []string) error {
				w, err := idx.FindByID(args[0])
				if err != nil {
					return err
				}
				printWord(out, idx, w)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "ref <source>",
			Short: "Find a reference and the word citing it",
			Args:  cobra.ExactArgs(1),
			RunE: a.withIndex(func(out io.Writer, idx *eldamo.Index, args []string) error {
				r, err := idx.FindRef(args[0])
				if err != nil {
					return err
				}
				owner, err := idx.Owner(r)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", r.Source, r.Verbum)
				fmt.Fprintf(out, "  cited by  %s [%s]\n", owner, owner.PageID)
				for _, l := range r.Links() {
					fmt.Fprintf(out, "  %-10s %s\n", l.Kind, l.Rel.TargetSource())
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rule <language> <rule> [from]",
			Short: "Find the page declaring a phonetic rule",
			Args:  cobra.RangeArgs(2, 3),
			RunE: a.withIndex(func(out io.Writer, idx *eldamo.Index, args []string) error {
				key := eldamo.RuleKey{Language: eldamo.Language(args[0]), Rule: args[1]}
				if len(args) == 3 {
					key.From = args[2]
				}
				w, ok := idx.FindRule(key)
				if !ok {
					fmt.Fprintf(out, "no page for rule %s\n", key)
					return nil
				}
				printWord(out, idx, w)
				return nil
			}),
		},
	)
	return cmd
}

// withIndex loads the current snapshot and hands its Index to fn.
func (a *app) withIndex(fn func(out io.Writer, idx *eldamo.Index, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := a.open(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		idx, err := rt.cache.Index(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd.OutOrStdout(), idx, args)
	}
}

func printWord(out io.Writer, idx *eldamo.Index, w *eldamo.Word) {
	fmt.Fprintf(out, "%s [%s]\n", w, w.PageID)
	fmt.Fprintf(out, "  %s\n", w.EldamoLink())
	for _, rel := range w.Relations() {
		target := rel.Rel.TargetKey().String()
		if t, err := rel.Rel.ResolveIn(idx); err == nil {
			target = fmt.Sprintf("%s [%s]", t, t.PageID)
		} else {
			target += " (unresolved)"
		}
		fmt.Fprintf(out, "  %-11s %s\n", rel.Kind, target)
	}
	for _, r := range idx.RelatedRefs(w) {
		fmt.Fprintf(out, "  ref         %s %s\n", r.Source, r.Verbum)
	}
	for _, n := range w.Notes {
		if text := n.Text(); text != "" {
			fmt.Fprintf(out, "  notes       %s\n", text)
		}
	}
}
