package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/japaniel/eldamo/pkg/db"
	"github.com/japaniel/eldamo/pkg/eldamo"
	"github.com/japaniel/eldamo/pkg/snapshot"
)

// handleWordByID returns the word with the given page id.
func (s *Server) handleWordByID(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	word, err := idx.FindByID(chi.URLParam(r, "pageID"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	writeJSON(w, newWordView(word, idx))
}

// handleFindWord returns the word with the given language and spelling.
func (s *Server) handleFindWord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	l, v := q.Get("l"), q.Get("v")
	if l == "" || v == "" {
		jsonError(w, "l and v query parameters are required", http.StatusBadRequest)
		return
	}
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	word, err := idx.FindByKey(eldamo.Key{Language: eldamo.Language(l), Verbum: v})
	if err != nil {
		s.lookupError(w, err)
		return
	}
	writeJSON(w, newWordView(word, idx))
}

// handleRelatedRefs returns a word's references followed by the references pointing
// back at them.
func (s *Server) handleRelatedRefs(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	word, err := idx.FindByID(chi.URLParam(r, "pageID"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	refs := idx.RelatedRefs(word)
	out := make([]refView, 0, len(refs))
	for _, ref := range refs {
		rv := refView{Source: ref.Source, Verbum: ref.Verbum}
		if owner, err := idx.Owner(ref); err == nil {
			rv.Owner = owner.PageID
		}
		out = append(out, rv)
	}
	writeJSON(w, map[string]any{"refs": out})
}

func (s *Server) handleFindRef(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		jsonError(w, "source query parameter is required", http.StatusBadRequest)
		return
	}
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	ref, err := idx.FindRef(source)
	if err != nil {
		s.lookupError(w, err)
		return
	}
	rv := refView{Source: ref.Source, Verbum: ref.Verbum}
	if owner, err := idx.Owner(ref); err == nil {
		rv.Owner = owner.PageID
	}
	writeJSON(w, rv)
}

func (s *Server) handleRefOwner(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		jsonError(w, "source query parameter is required", http.StatusBadRequest)
		return
	}
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	owner, err := idx.OwnerOf(source)
	if err != nil {
		s.lookupError(w, err)
		return
	}
	writeJSON(w, newWordView(owner, idx))
}

// handleFindRule returns the page declaring a phonetic rule. A rule without a page is
// reported as 404 like any other miss.
func (s *Server) handleFindRule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := eldamo.RuleKey{Language: eldamo.Language(q.Get("l")), Rule: q.Get("rule"), From: q.Get("from")}
	if key.Language == "" || key.Rule == "" {
		jsonError(w, "l and rule query parameters are required", http.StatusBadRequest)
		return
	}
	idx, ok := s.index(w, r)
	if !ok {
		return
	}
	word, found := idx.FindRule(key)
	if !found {
		jsonError(w, "no page for rule "+key.String(), http.StatusNotFound)
		return
	}
	writeJSON(w, newWordView(word, idx))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cache.Snapshot(r.Context())
	if err != nil {
		s.lookupError(w, err)
		return
	}
	st := snap.Index.Stats()
	writeJSON(w, statsView{
		SnapshotID:    snap.ID.String(),
		Document:      snap.Data.Version,
		Version:       snap.Version,
		LoadedAt:      snap.LoadedAt,
		LoadMillis:    snap.Duration.Milliseconds(),
		Words:         st.Words,
		Refs:          st.Refs,
		Rules:         st.Rules,
		KeyCollisions: st.KeyCollisions,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	loads, err := db.RecentLoads(s.history, limit)
	if err != nil {
		s.log.Error("history query failed", "error", err)
		jsonError(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	out := make([]loadView, 0, len(loads))
	for _, l := range loads {
		out = append(out, loadView{
			LoadID:    l.LoadID,
			Source:    l.Source,
			Document:  l.DocumentVersion,
			Version:   l.Freshness,
			Words:     l.Words,
			Refs:      l.Refs,
			Millis:    l.Duration.Milliseconds(),
			Error:     l.Error,
			StartedAt: l.StartedAt,
		})
	}
	writeJSON(w, map[string]any{"loads": out})
}

// index returns the up to date Index, writing an error response if it cannot be had.
func (s *Server) index(w http.ResponseWriter, r *http.Request) (*eldamo.Index, bool) {
	idx, err := s.cache.Index(r.Context())
	if err != nil {
		s.lookupError(w, err)
		return nil, false
	}
	return idx, true
}

// lookupError maps cache and index errors to status codes.
func (s *Server) lookupError(w http.ResponseWriter, err error) {
	var perr *eldamo.ParseError
	switch {
	case errors.Is(err, eldamo.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, snapshot.ErrSourceUnavailable), errors.As(err, &perr):
		s.log.Warn("document unavailable", "error", err)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("lookup failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
