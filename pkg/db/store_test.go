package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpsertTermSameCanonicalReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := UpsertTerm(db, "Café", "a coffee house", "we met at the café")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same canonical form, different spelling and definition: must replace,
	// not duplicate.
	id2, err := UpsertTerm(db, "CAFE", "updated definition", "")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}

	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM terms`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 term row, got %d", cnt)
	}

	got, err := GetTerm(db, "cafe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Term != "CAFE" || got.Definition != "updated definition" {
		t.Fatalf("last write did not win: %+v", got)
	}
}

func TestUpsertTermRejectsEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := UpsertTerm(db, "   ", "def", ""); err == nil {
		t.Fatalf("expected error for blank term")
	}
}

func TestGetTermByCanonicalForm(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := UpsertTerm(db, "Algorithmus", "a finite procedure", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Lookup is accent- and case-insensitive.
	got, err := GetTerm(db, "  ALGORITHMUS ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Term != "Algorithmus" {
		t.Fatalf("expected Algorithmus, got %s", got.Term)
	}
	if _, err := GetTerm(db, "missing"); err == nil {
		t.Fatalf("expected error for missing term")
	}
}

func TestDeleteTerm(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := UpsertTerm(db, "Zebra", "", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	found, err := DeleteTerm(db, "ZEBRA")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Fatalf("expected delete to find the row")
	}
	found, err = DeleteTerm(db, "zebra")
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if found {
		t.Fatalf("expected second delete to find nothing")
	}
}

func TestListTermsOrderedByCanonical(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	for _, term := range []string{"Zebra", "Ähre", "bericht"} {
		if _, err := UpsertTerm(db, term, "", ""); err != nil {
			t.Fatalf("upsert %s: %v", term, err)
		}
	}
	terms, err := ListTerms(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"ahre", "bericht", "zebra"}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d", len(want), len(terms))
	}
	for i, w := range want {
		if terms[i].Canonical != w {
			t.Errorf("position %d: expected canonical %q, got %q", i, w, terms[i].Canonical)
		}
	}
}

func TestCreateOrGetSource(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetSource(db, "knuth-vol1", "TAOCP Volume 1", "", "")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	id2, err := CreateOrGetSource(db, "knuth-vol1", "different description", "", "")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same source id, got %d and %d", id1, id2)
	}
}

func TestLinkAndQuerySources(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	termID, err := UpsertTerm(db, "Heuristik", "rule of thumb", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	sB, err := CreateOrGetSource(db, "b-source", "second alphabetically", "", "")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	sA, err := CreateOrGetSource(db, "a-source", "first alphabetically", "", "")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	// Link b first, then a; SourcesForTerm must keep link order, not label order.
	if err := LinkTermToSource(db, termID, sB); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := LinkTermToSource(db, termID, sA); err != nil {
		t.Fatalf("link: %v", err)
	}
	// Duplicate link is a no-op.
	if err := LinkTermToSource(db, termID, sB); err != nil {
		t.Fatalf("relink: %v", err)
	}

	sources, err := SourcesForTerm(db, termID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Label != "b-source" || sources[1].Label != "a-source" {
		t.Fatalf("expected link order b-source, a-source; got %s, %s", sources[0].Label, sources[1].Label)
	}
}

func TestDeleteSourceLeavesTerms(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	termID, err := UpsertTerm(db, "Invariante", "", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	srcID, err := CreateOrGetSource(db, "lecture-notes", "", "", "")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if err := LinkTermToSource(db, termID, srcID); err != nil {
		t.Fatalf("link: %v", err)
	}
	found, err := DeleteSource(db, "lecture-notes")
	if err != nil {
		t.Fatalf("delete source: %v", err)
	}
	if !found {
		t.Fatalf("expected source to exist")
	}
	// Term survives with no sources.
	if _, err := GetTerm(db, "invariante"); err != nil {
		t.Fatalf("term should survive source deletion: %v", err)
	}
	sources, err := SourcesForTerm(db, termID)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no linked sources, got %d", len(sources))
	}
}

func TestImportProgress(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	srcID, err := CreateOrGetSource(db, "terms.csv", "import file", "", "")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	idx, err := GetImportProgress(db, srcID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if idx != -1 {
		t.Fatalf("expected -1 before any import, got %d", idx)
	}
	if err := UpdateImportProgress(db, srcID, 41); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	idx, err = GetImportProgress(db, srcID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if idx != 41 {
		t.Fatalf("expected 41, got %d", idx)
	}
}

func TestCreateOrGetSourceConcurrency(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	const n = 8
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := CreateOrGetSource(db, "shared-label", "", "", "")
			if err != nil {
				t.Errorf("create or get source: %v", err)
				ids <- 0
				return
			}
			ids <- id
		}()
	}
	var first int64
	for i := 0; i < n; i++ {
		id := <-ids
		if id == 0 {
			t.Fatalf("error in goroutine")
		}
		if i == 0 {
			first = id
		}
		if id != first {
			t.Fatalf("expected same id, got %d and %d", first, id)
		}
	}
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sources WHERE label = ?`, "shared-label").Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 source row, got %d", cnt)
	}
}
