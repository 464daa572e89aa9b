package api

import (
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

type wordView struct {
	PageID       string         `json:"page_id"`
	Language     string         `json:"language"`
	LanguageName string         `json:"language_name"`
	Verbum       string         `json:"v"`
	Gloss        string         `json:"gloss,omitempty"`
	Speech       []string       `json:"speech,omitempty"`
	Display      string         `json:"display"`
	Link         string         `json:"eldamo_link"`
	Neo          bool           `json:"neo,omitempty"`
	Children     []string       `json:"children,omitempty"`
	Refs         []refView      `json:"refs,omitempty"`
	Relations    []relationView `json:"relations,omitempty"`
	Notes        []string       `json:"notes,omitempty"`
}

type refView struct {
	Source string `json:"source"`
	Verbum string `json:"v,omitempty"`
	Owner  string `json:"owner,omitempty"`
}

type relationView struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	PageID string `json:"page_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type statsView struct {
	SnapshotID    string    `json:"snapshot_id"`
	Document      string    `json:"document_version"`
	Version       int64     `json:"version"`
	LoadedAt      time.Time `json:"loaded_at"`
	LoadMillis    int64     `json:"load_ms"`
	Words         int       `json:"words"`
	Refs          int       `json:"refs"`
	Rules         int       `json:"rules"`
	KeyCollisions int       `json:"key_collisions"`
}

type loadView struct {
	LoadID    string    `json:"load_id"`
	Source    string    `json:"source"`
	Document  string    `json:"document_version,omitempty"`
	Version   int64     `json:"version"`
	Words     int       `json:"words"`
	Refs      int       `json:"refs"`
	Millis    int64     `json:"duration_ms"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func newWordView(w *eldamo.Word, idx *eldamo.Index) wordView {
	v := wordView{
		PageID:       w.PageID,
		Language:     string(w.Language),
		LanguageName: w.Language.Name(),
		Verbum:       w.Verbum,
		Gloss:        w.Gloss,
		Speech:       w.Speech,
		Display:      w.String(),
		Link:         w.EldamoLink(),
		Neo:          w.IsNeo(),
	}
	for _, c := range w.Children {
		if c != nil {
			v.Children = append(v.Children, c.PageID)
		}
	}
	for _, r := range w.Refs {
		if r != nil {
			v.Refs = append(v.Refs, refView{Source: r.Source, Verbum: r.Verbum})
		}
	}
	for _, tr := range w.Relations() {
		rv := relationView{Kind: string(tr.Kind), Target: tr.Rel.TargetKey().String()}
		if target, err := tr.Rel.ResolveIn(idx); err != nil {
			rv.Error = err.Error()
		} else {
			rv.PageID = target.PageID
		}
		v.Relations = append(v.Relations, rv)
	}
	for _, n := range w.Notes {
		v.Notes = append(v.Notes, n.Convert(linker{}))
	}
	return v
}

// linker renders note links as anchors into this API.
type linker struct{}

func (linker) WordLink(key eldamo.Key, content string) string {
	q := url.Values{"l": {string(key.Language)}, "v": {key.Verbum}}
	return fmt.Sprintf(`<a href="/api/words?%s">%s</a>`, html.EscapeString(q.Encode()), html.EscapeString(content))
}

func (linker) RefLink(source, content string) string {
	q := url.Values{"source": {source}}
	return fmt.Sprintf(`<a href="/api/refs?%s">%s</a>`, html.EscapeString(q.Encode()), html.EscapeString(content))
}
