package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/eldamo/pkg/snapshot"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

const loadColumns = `id, load_id, source, document_version, freshness, words, refs, rules,
	key_collisions, duration_ns, error, started_at`

// RecordLoad inserts rec and returns its row id.
func RecordLoad(db DBExecutor, rec LoadRecord) (int64, error) {
	if strings.TrimSpace(rec.LoadID) == "" {
		return 0, fmt.Errorf("load id must be non-empty")
	}
	res, err := db.Exec(
		`INSERT INTO loads (load_id, source, document_version, freshness, words, refs, rules,
			key_collisions, duration_ns, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LoadID, rec.Source, rec.DocumentVersion, rec.Freshness, rec.Words, rec.Refs, rec.Rules,
		rec.KeyCollisions, int64(rec.Duration), rec.Error, rec.StartedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert load: %w", err)
	}
	return res.LastInsertId()
}

// RecentLoads returns up to limit records, newest first.
func RecentLoads(db DBExecutor, limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT `+loadColumns+` FROM loads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastSuccessfulLoad returns the newest record without an error. ok is false if there
// is none.
func LastSuccessfulLoad(db DBExecutor) (rec LoadRecord, ok bool, err error) {
	row := db.QueryRow(`SELECT ` + loadColumns + ` FROM loads WHERE error = '' ORDER BY id DESC LIMIT 1`)
	rec, err = scanLoad(row)
	if err == sql.ErrNoRows {
		return LoadRecord{}, false, nil
	}
	if err != nil {
		return LoadRecord{}, false, err
	}
	return rec, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(s scanner) (LoadRecord, error) {
	var rec LoadRecord
	var durationNS int64
	err := s.Scan(&rec.ID, &rec.LoadID, &rec.Source, &rec.DocumentVersion, &rec.Freshness,
		&rec.Words, &rec.Refs, &rec.Rules, &rec.KeyCollisions, &durationNS, &rec.Error, &rec.StartedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, err
		}
		return rec, fmt.Errorf("scan load: %w", err)
	}
	rec.Duration = time.Duration(durationNS)
	return rec, nil
}

// Recorder stores every reload attempt reported by a snapshot.Cache.
type Recorder struct {
	db     *sql.DB
	source string
	log    *slog.Logger
}

var _ snapshot.LoadObserver = (*Recorder)(nil)

// NewRecorder returns a Recorder tagging records with source, usually the path or URL
// the document is read from.
func NewRecorder(db *sql.DB, source string, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{db: db, source: source, log: log}
}

// ObserveLoad records ev. A failure to write is logged and otherwise ignored.
func (r *Recorder) ObserveLoad(ctx context.Context, ev snapshot.LoadEvent) {
	rec := LoadRecord{
		LoadID:          ev.ID.String(),
		Source:          r.source,
		DocumentVersion: ev.Document,
		Freshness:       ev.Version,
		Words:           ev.Stats.Words,
		Refs:            ev.Stats.Refs,
		Rules:           ev.Stats.Rules,
		KeyCollisions:   ev.Stats.KeyCollisions,
		Duration:        ev.Duration,
		StartedAt:       ev.Started,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	if _, err := RecordLoad(r.db, rec); err != nil {
		r.log.WarnContext(ctx, "failed to record load", "load_id", rec.LoadID, "error", err)
	}
}
