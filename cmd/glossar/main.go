package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/glossarkit/glossar/pkg/capture"
	"github.com/glossarkit/glossar/pkg/config"
	"github.com/glossarkit/glossar/pkg/db"
	"github.com/glossarkit/glossar/pkg/exchange"
	"github.com/glossarkit/glossar/pkg/ingest"
	"github.com/glossarkit/glossar/pkg/match"
	"github.com/glossarkit/glossar/pkg/remote"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defaultFuzzy, defaultTolerance := cfg.SearchSettings()

	addFlag := flag.Bool("add", false, "Add or update a term (use with -term, -definition, -example, -source)")
	termFlag := flag.String("term", "", "Term text for -add")
	definitionFlag := flag.String("definition", "", "Definition text for -add")
	exampleFlag := flag.String("example", "", "Example sentence for -add")
	sourceFlag := flag.String("source", "", "Source label to link the term to (for -add)")
	getFlag := flag.String("get", "", "Look up a single term")
	deleteFlag := flag.String("delete", "", "Delete a term")
	listFlag := flag.Bool("list", false, "List all terms")
	searchFlag := flag.String("search", "", "Search terms (exact, then substring, then fuzzy)")
	fuzzyFlag := flag.Bool("fuzzy", defaultFuzzy, "Enable the fuzzy fallback for -search")
	toleranceFlag := flag.Int("tolerance", defaultTolerance, "Max edit distance for fuzzy matches")
	suggestFlag := flag.String("suggest", "", "Suggest completions for a partial term")
	importFlag := flag.String("import-csv", "", "Path to a CSV file to import")
	sourceLabelFlag := flag.String("source-label", "", "Source label for -import-csv (default: file name)")
	exportCSVFlag := flag.String("export-csv", "", "Write the glossary to a CSV file")
	exportDocFlag := flag.String("export-doc", "", "Write the glossary to an HTML document")
	captureFlag := flag.String("capture-source", "", "URL to fetch and register as a source")
	pushFlag := flag.Bool("push", false, "Upload the glossary to the configured remote")
	pullFlag := flag.Bool("pull", false, "Merge the remote glossary into the local database")
	dbFlag := flag.String("db", cfg.Database, "Path to SQLite database")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if dir := filepath.Dir(*dbFlag); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	conn, err := sql.Open("sqlite3", *dbFlag)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	if err := db.InitDB(conn); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	switch {
	case *addFlag:
		runAdd(conn, *termFlag, *definitionFlag, *exampleFlag, *sourceFlag)
	case *getFlag != "":
		runGet(conn, *getFlag)
	case *deleteFlag != "":
		runDelete(conn, *deleteFlag)
	case *listFlag:
		runList(conn)
	case *searchFlag != "":
		runSearch(conn, *searchFlag, *fuzzyFlag, *toleranceFlag)
	case *suggestFlag != "":
		runSuggest(conn, *suggestFlag)
	case *importFlag != "":
		runImport(ctx, conn, *importFlag, *sourceLabelFlag)
	case *exportCSVFlag != "":
		runExportCSV(conn, *exportCSVFlag)
	case *exportDocFlag != "":
		runExportDoc(conn, *exportDocFlag)
	case *captureFlag != "":
		runCapture(ctx, conn, *captureFlag)
	case *pushFlag:
		runPush(ctx, conn, cfg)
	case *pullFlag:
		runPull(ctx, conn, cfg)
	default:
		flag.Usage()
		log.Fatal("Please provide an operation")
	}
}

func runAdd(conn *sql.DB, term, definition, example, sourceLabel string) {
	if strings.TrimSpace(term) == "" {
		log.Fatal("-add requires a non-empty -term")
	}

	termID, err := db.UpsertTerm(conn, term, definition, example)
	if err != nil {
		log.Fatalf("Failed to save term: %v", err)
	}

	if sourceLabel != "" {
		sourceID, err := db.CreateOrGetSource(conn, sourceLabel, "", "", "")
		if err != nil {
			log.Fatalf("Failed to save source: %v", err)
		}
		if err := db.LinkTermToSource(conn, termID, sourceID); err != nil {
			log.Fatalf("Failed to link term to source: %v", err)
		}
	}

	fmt.Printf("Saved term %q (id %d)\n", term, termID)
}

func runGet(conn *sql.DB, term string) {
	t, err := db.GetTerm(conn, term)
	if err != nil {
		log.Fatalf("Failed to look up term: %v", err)
	}
	if t == nil {
		log.Fatalf("Term %q not found", term)
	}

	fmt.Printf("%s\n", t.Term)
	if t.Definition != "" {
		fmt.Printf("  %s\n", t.Definition)
	}
	if t.Example != "" {
		fmt.Printf("  Example: %s\n", t.Example)
	}

	sources, err := db.SourcesForTerm(conn, t.ID)
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}
	for _, s := range sources {
		fmt.Printf("  Source: %s\n", s.Label)
	}
}

func runDelete(conn *sql.DB, term string) {
	removed, err := db.DeleteTerm(conn, term)
	if err != nil {
		log.Fatalf("Failed to delete term: %v", err)
	}
	if !removed {
		log.Fatalf("Term %q not found", term)
	}
	fmt.Printf("Deleted %q\n", term)
}

func runList(conn *sql.DB) {
	terms, err := db.ListTerms(conn)
	if err != nil {
		log.Fatalf("Failed to list terms: %v", err)
	}
	for _, t := range terms {
		fmt.Printf("%s\t%s\n", t.Term, t.Definition)
	}
	fmt.Printf("%d terms\n", len(terms))
}

func runSearch(conn *sql.DB, query string, fuzzy bool, tolerance int) {
	terms, err := db.ListTerms(conn)
	if err != nil {
		log.Fatalf("Failed to list terms: %v", err)
	}

	matches := match.Search(query, terms, fuzzy, tolerance)
	if len(matches) == 0 {
		fmt.Printf("No matches for %q\n", query)
		return
	}
	for _, t := range matches {
		fmt.Printf("%s\t%s\n", t.Term, t.Definition)
	}
}

func runSuggest(conn *sql.DB, query string) {
	terms, err := db.ListTerms(conn)
	if err != nil {
		log.Fatalf("Failed to list terms: %v", err)
	}
	for _, t := range match.Suggest(query, terms) {
		fmt.Println(t.Term)
	}
}

func runImport(ctx context.Context, conn *sql.DB, path, label string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer f.Close()

	records, err := exchange.ParseCSV(f)
	if err != nil {
		log.Fatalf("Failed to parse CSV: %v", err)
	}

	if label == "" {
		label = filepath.Base(path)
	}
	sourceID, err := db.CreateOrGetSource(conn, label, "CSV import", "", "")
	if err != nil {
		log.Fatalf("Failed to register import source: %v", err)
	}

	start := time.Now()
	importer := ingest.NewImporter(conn)
	count, err := importer.Import(ctx, sourceID, records)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	fmt.Printf("Imported %d terms from %s in %v\n", count, path, time.Since(start).Round(time.Millisecond))
}

func runExportCSV(conn *sql.DB, path string) {
	records, err := glossaryRecords(conn)
	if err != nil {
		log.Fatalf("Failed to read glossary: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create CSV file: %v", err)
	}
	defer f.Close()

	if err := exchange.WriteCSV(f, records); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}
	fmt.Printf("Exported %d terms to %s\n", len(records), path)
}

func runExportDoc(conn *sql.DB, path string) {
	records, err := glossaryRecords(conn)
	if err != nil {
		log.Fatalf("Failed to read glossary: %v", err)
	}

	doc := exchange.Document{GeneratedAt: time.Now()}
	for _, r := range records {
		doc.Entries = append(doc.Entries, exchange.DocumentEntry{
			Term:       r.Term,
			Definition: r.Definition,
			Example:    r.Example,
			Sources:    r.SourceLabels,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create document: %v", err)
	}
	defer f.Close()

	if err := exchange.WriteDocument(f, doc); err != nil {
		log.Fatalf("Failed to write document: %v", err)
	}
	fmt.Printf("Exported %d terms to %s\n", len(doc.Entries), path)
}

// glossaryRecords reads the full glossary with source labels, ordered by
// canonical term.
func glossaryRecords(conn *sql.DB) ([]exchange.Record, error) {
	terms, err := db.ListTerms(conn)
	if err != nil {
		return nil, err
	}

	records := make([]exchange.Record, 0, len(terms))
	for _, t := range terms {
		sources, err := db.SourcesForTerm(conn, t.ID)
		if err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(sources))
		for _, s := range sources {
			labels = append(labels, s.Label)
		}
		sort.Strings(labels)
		records = append(records, exchange.Record{
			Term:         t.Term,
			Definition:   t.Definition,
			Example:      t.Example,
			SourceLabels: labels,
		})
	}
	return records, nil
}

func runCapture(ctx context.Context, conn *sql.DB, rawURL string) {
	fetcher := &capture.Fetcher{}
	page, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		log.Fatalf("Failed to capture %s: %v", rawURL, err)
	}

	label := page.Title
	if label == "" {
		label = page.URL
	}
	sourceID, err := db.CreateOrGetSource(conn, label, page.Excerpt, page.SiteName, page.URL)
	if err != nil {
		log.Fatalf("Failed to save source: %v", err)
	}
	fmt.Printf("Captured %q (source id %d)\n", label, sourceID)
}

func runPush(ctx context.Context, conn *sql.DB, cfg *config.Config) {
	client := remoteClient(cfg)

	local, err := db.BuildSnapshot(conn)
	if err != nil {
		log.Fatalf("Failed to build snapshot: %v", err)
	}

	theirs, err := client.Pull(ctx)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		log.Fatalf("Failed to fetch remote snapshot: %v", err)
	}

	merged := remote.Merge(local, theirs)
	if err := client.Push(ctx, merged); err != nil {
		log.Fatalf("Failed to push snapshot: %v", err)
	}
	fmt.Printf("Pushed %d terms to %s\n", len(merged.Terms), cfg.Remote.URL)
}

func runPull(ctx context.Context, conn *sql.DB, cfg *config.Config) {
	client := remoteClient(cfg)

	theirs, err := client.Pull(ctx)
	if errors.Is(err, remote.ErrNotFound) {
		log.Fatal("Remote has no snapshot yet (run -push first)")
	}
	if err != nil {
		log.Fatalf("Failed to fetch remote snapshot: %v", err)
	}

	local, err := db.BuildSnapshot(conn)
	if err != nil {
		log.Fatalf("Failed to build snapshot: %v", err)
	}

	merged := remote.Merge(local, theirs)
	if err := db.ApplySnapshot(conn, merged); err != nil {
		log.Fatalf("Failed to apply snapshot: %v", err)
	}
	fmt.Printf("Pulled %d terms from %s\n", len(merged.Terms), cfg.Remote.URL)
}

func remoteClient(cfg *config.Config) *remote.Client {
	if !cfg.HasRemote() {
		log.Fatal("No remote configured (set [remote] url in config.toml)")
	}
	return remote.NewClient(cfg.Remote.URL, cfg.Remote.Token)
}
