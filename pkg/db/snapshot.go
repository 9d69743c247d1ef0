package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glossarkit/glossar/pkg/exchange"
)

// BuildSnapshot captures the full glossary state in interchange form.
func BuildSnapshot(conn DBExecutor) (*exchange.Snapshot, error) {
	snap := &exchange.Snapshot{GeneratedAt: time.Now()}

	terms, err := ListTerms(conn)
	if err != nil {
		return nil, fmt.Errorf("snapshot terms: %w", err)
	}
	for _, t := range terms {
		snap.Terms = append(snap.Terms, exchange.SnapshotTerm{
			Term:       t.Term,
			Canonical:  t.Canonical,
			Definition: t.Definition,
			Example:    t.Example,
			UpdatedAt:  t.UpdatedAt,
		})
	}

	sources, err := ListSources(conn)
	if err != nil {
		return nil, fmt.Errorf("snapshot sources: %w", err)
	}
	for _, s := range sources {
		snap.Sources = append(snap.Sources, exchange.SnapshotSource{
			Label:       s.Label,
			Description: s.Description,
			Website:     s.Website,
			URL:         s.URL,
		})
	}

	rows, err := conn.Query(
		`SELECT t.canonical, s.label
		 FROM term_sources ts
		 JOIN terms t ON t.id = ts.term_id
		 JOIN sources s ON s.id = ts.source_id
		 ORDER BY ts.id`)
	if err != nil {
		return nil, fmt.Errorf("snapshot links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l exchange.SnapshotLink
		if err := rows.Scan(&l.TermCanonical, &l.SourceLabel); err != nil {
			return nil, err
		}
		snap.Links = append(snap.Links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ApplySnapshot replaces the local glossary state with snap, atomically. Term
// timestamps are taken from the snapshot so a later merge still sees the
// original update times. Import checkpoints do not survive the replacement.
func ApplySnapshot(conn *sql.DB, snap *exchange.Snapshot) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("apply snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, stmt := range []string{
		`DELETE FROM term_sources`,
		`DELETE FROM terms`,
		`DELETE FROM sources`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply snapshot: clear state: %w", err)
		}
	}

	termIDs := make(map[string]int64, len(snap.Terms))
	for _, t := range snap.Terms {
		var id int64
		err := tx.QueryRow(
			`INSERT INTO terms (term, canonical, definition, example, updated_at)
			 VALUES (?, ?, ?, ?, ?) RETURNING id`,
			t.Term, t.Canonical, t.Definition, t.Example, t.UpdatedAt).Scan(&id)
		if err != nil {
			return fmt.Errorf("apply snapshot: term %q: %w", t.Term, err)
		}
		termIDs[t.Canonical] = id
	}

	sourceIDs := make(map[string]int64, len(snap.Sources))
	for _, s := range snap.Sources {
		res, err := tx.Exec(
			`INSERT INTO sources (label, description, website, url) VALUES (?, ?, ?, ?)`,
			s.Label, s.Description, s.Website, s.URL)
		if err != nil {
			return fmt.Errorf("apply snapshot: source %q: %w", s.Label, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sourceIDs[s.Label] = id
	}

	for _, l := range snap.Links {
		termID, ok := termIDs[l.TermCanonical]
		if !ok {
			continue // dangling link in the snapshot, tolerated
		}
		sourceID, ok := sourceIDs[l.SourceLabel]
		if !ok {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO term_sources (term_id, source_id) VALUES (?, ?)
			 ON CONFLICT(term_id, source_id) DO NOTHING`, termID, sourceID); err != nil {
			return fmt.Errorf("apply snapshot: link %s->%s: %w", l.TermCanonical, l.SourceLabel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply snapshot: commit: %w", err)
	}
	return nil
}
