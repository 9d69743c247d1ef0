package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/glossarkit/glossar/pkg/match"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// UpsertTerm inserts or replaces a glossary entry keyed on the canonical form
// of term. Two spellings with the same canonical form are the same record;
// the last write replaces definition, example, and displayed spelling.
// Returns the row id.
func UpsertTerm(db DBExecutor, term, definition, example string) (int64, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return 0, fmt.Errorf("term must be non-empty")
	}
	canonical := match.Normalize(trimmed)

	var id int64
	query := `INSERT INTO terms (term, canonical, definition, example)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(canonical)
			  DO UPDATE SET
			    term = excluded.term,
				definition = excluded.definition,
				example = excluded.example,
				updated_at = CURRENT_TIMESTAMP
			  RETURNING id`

	err := db.QueryRow(query, trimmed, canonical, definition, example).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert term: %w", err)
	}
	return id, nil
}

// GetTerm looks up an entry by the canonical form of term. Returns
// sql.ErrNoRows (wrapped) when absent.
func GetTerm(db DBExecutor, term string) (*Term, error) {
	canonical := match.Normalize(strings.TrimSpace(term))
	row := db.QueryRow(
		`SELECT id, term, canonical, definition, example, created_at, updated_at
		 FROM terms WHERE canonical = ?`, canonical)
	t, err := scanTerm(row)
	if err != nil {
		return nil, fmt.Errorf("get term %q: %w", term, err)
	}
	return t, nil
}

// DeleteTerm removes the entry whose canonical form matches term. The second
// return reports whether a row existed. Source links for the term are removed
// as well; the sources themselves stay.
func DeleteTerm(db DBExecutor, term string) (bool, error) {
	canonical := match.Normalize(strings.TrimSpace(term))
	var id int64
	err := db.QueryRow(`SELECT id FROM terms WHERE canonical = ?`, canonical).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := db.Exec(`DELETE FROM term_sources WHERE term_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete term links: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM terms WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete term: %w", err)
	}
	return true, nil
}

// ListTerms returns every entry ordered by canonical form — the order the
// matcher expects its input collection in.
func ListTerms(db DBExecutor) ([]Term, error) {
	rows, err := db.Query(
		`SELECT id, term, canonical, definition, example, created_at, updated_at
		 FROM terms ORDER BY canonical`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTerm(r rowScanner) (*Term, error) {
	var t Term
	var definition, example sql.NullString
	if err := r.Scan(&t.ID, &t.Term, &t.Canonical, &definition, &example, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if definition.Valid {
		t.Definition = definition.String
	}
	if example.Valid {
		t.Example = example.String
	}
	return &t, nil
}

// CreateOrGetSource returns the existing source id for label or inserts a new
// source and returns its id.
func CreateOrGetSource(db DBExecutor, label, description, website, url string) (int64, error) {
	trimmedLabel := strings.TrimSpace(label)
	if trimmedLabel == "" {
		return 0, fmt.Errorf("source label must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		// First, try to find an existing source.
		err := db.QueryRow(`SELECT id FROM sources WHERE label = ?`, trimmedLabel).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		// No existing row; try to insert one.
		res, err := db.Exec(
			`INSERT INTO sources (label, description, website, url) VALUES (?, ?, ?, ?)`,
			trimmedLabel, description, website, url,
		)
		if err != nil {
			// If another concurrent transaction inserted the same label, retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}

		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// ListSources returns every source ordered by label.
func ListSources(db DBExecutor) ([]Source, error) {
	rows, err := db.Query(
		`SELECT id, label, description, website, url, added_at FROM sources ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// DeleteSource removes the source with the given label and its link rows.
// Terms that referenced it are untouched; a dangling reference in exported
// data is tolerated.
func DeleteSource(db DBExecutor, label string) (bool, error) {
	var id int64
	err := db.QueryRow(`SELECT id FROM sources WHERE label = ?`, strings.TrimSpace(label)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := db.Exec(`DELETE FROM term_sources WHERE source_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete source links: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete source: %w", err)
	}
	return true, nil
}

// LinkTermToSource associates a term with a source. Linking the same pair
// twice is a no-op.
func LinkTermToSource(db DBExecutor, termID, sourceID int64) error {
	if termID <= 0 {
		return fmt.Errorf("termID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	_, err := db.Exec(
		`INSERT INTO term_sources (term_id, source_id) VALUES (?, ?)
		 ON CONFLICT(term_id, source_id) DO NOTHING`, termID, sourceID)
	return err
}

// SourcesForTerm returns the sources linked to a term, in the order the links
// were made.
func SourcesForTerm(db DBExecutor, termID int64) ([]Source, error) {
	rows, err := db.Query(
		`SELECT s.id, s.label, s.description, s.website, s.url, s.added_at
		 FROM sources s JOIN term_sources ts ON ts.source_id = s.id
		 WHERE ts.term_id = ? ORDER BY ts.id`, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

func collectSources(rows *sql.Rows) ([]Source, error) {
	var out []Source
	for rows.Next() {
		var s Source
		var description, website, url sql.NullString
		if err := rows.Scan(&s.ID, &s.Label, &description, &website, &url, &s.AddedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			s.Description = description.String
		}
		if website.Valid {
			s.Website = website.String
		}
		if url.Valid {
			s.URL = url.String
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetImportProgress returns the last committed row index for a CSV import
// attributed to the source, or -1 when nothing has been imported yet.
func GetImportProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow(`SELECT last_imported_row FROM sources WHERE id = ?`, sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateImportProgress checkpoints the last committed row index.
func UpdateImportProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec(`UPDATE sources SET last_imported_row = ? WHERE id = ?`, index, sourceID)
	return err
}
