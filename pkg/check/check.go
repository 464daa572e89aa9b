// Package check verifies that every relation in an indexed document resolves.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

// Issue is a relation whose target could not be resolved.
type Issue struct {
	Owner  string // "word <page-id>" or "ref <source>"
	Kind   eldamo.RelKind
	Target string
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s -> %s: %v", i.Owner, i.Kind, i.Target, i.Err)
}

type Options struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
	Log     *slog.Logger
}

// Run resolves every word relation and reference detail of idx. Issues are returned
// in registration order of their owners, words before references, and in declaration
// order within an owner. A rule example naming a rule without a page is not an issue.
func Run(ctx context.Context, idx *eldamo.Index, opts Options) ([]Issue, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	words := idx.Words()
	refs := idx.Refs()
	results := make([][]Issue, len(words)+len(refs))

	pool := NewWorkerPool(opts.Workers, 0)
	pool.Start(ctx)

	submit := func(slot int, fn func() []Issue) error {
		return pool.Submit(ctx, func(context.Context) error {
			results[slot] = fn()
			return nil
		})
	}

	var err error
	for i, w := range words {
		w := w
		if err = submit(i, func() []Issue { return checkWord(idx, w) }); err != nil {
			break
		}
	}
	if err == nil {
		for i, r := range refs {
			r := r
			if err = submit(len(words)+i, func() []Issue { return checkRef(idx, r) }); err != nil {
				break
			}
		}
	}
	pool.Close()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Issue
	for _, r := range results {
		out = append(out, r...)
	}
	opts.Log.Info("consistency check finished",
		"words", len(words), "refs", len(refs), "issues", len(out), "workers", opts.Workers)
	return out, nil
}

func checkWord(idx *eldamo.Index, w *eldamo.Word) []Issue {
	owner := "word " + w.PageID
	var out []Issue
	add := func(kind eldamo.RelKind, target string, err error) {
		if err != nil {
			out = append(out, Issue{Owner: owner, Kind: kind, Target: target, Err: err})
		}
	}

	for _, tr := range w.Relations() {
		_, err := tr.Rel.ResolveIn(idx)
		add(tr.Kind, tr.Rel.TargetKey().String(), err)
		for _, ex := range tr.Rel.OrderExamples {
			if ex == nil {
				continue
			}
			_, err := ex.ResolveIn(idx)
			add(eldamo.RelOrder, ex.TargetSource(), err)
		}
	}
	for _, d := range w.Deprecated {
		if d == nil {
			continue
		}
		key, ok := d.TargetKey()
		if !ok {
			continue
		}
		_, err := d.ResolveIn(idx)
		add(eldamo.RelDeprecated, key.String(), err)
	}
	for _, in := range w.Inflections {
		if in == nil {
			continue
		}
		_, err := in.ResolveIn(idx)
		add(eldamo.RelInflect, in.TargetSource(), err)
	}
	return out
}

func checkRef(idx *eldamo.Index, r *eldamo.Ref) []Issue {
	owner := "ref " + r.Source
	var out []Issue
	for _, tr := range r.Links() {
		if tr.Rel.TargetSource() == "" {
			// detail without a citation of its own
			continue
		}
		if _, err := tr.Rel.ResolveIn(idx); err != nil {
			out = append(out, Issue{Owner: owner, Kind: tr.Kind, Target: tr.Rel.TargetSource(), Err: err})
		}
	}
	return out
}
