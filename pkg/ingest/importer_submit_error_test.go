package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glossarkit/glossar/pkg/db"
	"github.com/glossarkit/glossar/pkg/exchange"
	_ "github.com/mattn/go-sqlite3"
)

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestImportSurfacesSubmitError(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	sourceID, err := db.CreateOrGetSource(conn, "failing.csv", "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	records := make([]exchange.Record, 10)
	for i := range records {
		records[i] = exchange.Record{Term: "term"}
	}

	importer := NewImporter(conn)
	importer.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := importer.Import(ctx, sourceID, records); err == nil {
		t.Fatalf("expected submit error, got nil")
	}
}
