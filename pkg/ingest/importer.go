// Package ingest turns parsed CSV records into glossary rows. Rows are
// validated concurrently by a worker pool, re-ordered back into file order,
// and committed in batched transactions with a per-row resume checkpoint.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glossarkit/glossar/pkg/db"
	"github.com/glossarkit/glossar/pkg/exchange"
)

// Importer writes glossary records into the database.
type Importer struct {
	DB        *sql.DB
	BatchSize int

	// Logger is used for informational messages (e.g. resume status). nil means no logging.
	Logger *log.Logger

	// OnProgress is called periodically with the number of processed rows and total rows.
	OnProgress func(current, total int)

	// Workers sets the validation concurrency.
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// NewImporter creates an Importer with default batching and concurrency.
func NewImporter(conn *sql.DB) *Importer {
	return &Importer{
		DB:        conn,
		BatchSize: 50,
		Workers:   4,
	}
}

// preparedRow is a validated record ready for the write path.
type preparedRow struct {
	Index        int
	Term         string
	Definition   string
	Example      string
	SourceLabels []string
	// Skip marks rows with no term; they are checkpointed but not written.
	Skip bool
}

// Import writes records into the glossary, attributing every imported term to
// the source identified by sourceID (typically the import file itself) plus
// any per-row source labels. Progress is checkpointed per committed row
// against that source, so re-running the same file resumes where the previous
// run stopped. Returns the number of upserted terms.
//
// Rows are written in file order: when one file mentions the same canonical
// term twice, the later row wins, matching the collection's last-write-wins
// rule.
func (im *Importer) Import(ctx context.Context, sourceID int64, records []exchange.Record) (int, error) {
	lastDone, err := db.GetImportProgress(im.DB, sourceID)
	if err != nil {
		if im.Logger != nil {
			im.Logger.Printf("Warning: failed to retrieve import progress: %v", err)
		}
		lastDone = -1
	}
	if lastDone >= 0 && im.Logger != nil {
		im.Logger.Printf("Resuming import at row %d (skipping %d rows)", lastDone+1, lastDone+1)
	}

	total := len(records)
	startIdx := lastDone + 1
	if startIdx >= total {
		return 0, nil // nothing to do
	}

	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(im.Workers, im.Workers*2)
	} else {
		wp = NewWorkerPool(im.Workers, im.Workers*2)
	}
	resultCh := make(chan preparedRow, im.Workers*2)
	closedResultCh := false
	doneCh := make(chan error, 1)

	var imported int64

	bw := NewBatchWriter(im.DB, im.BatchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	// Cleanup on every return path. Registered before cancel below so that
	// cancellation runs first and unblocks workers stuck sending results.
	defer func() {
		wp.Close()
		if !closedResultCh {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	// Consumer: rows arrive in completion order; the buffer restores file
	// order before anything reaches the batch writer.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]preparedRow)
		nextIdx := startIdx

		for res := range resultCh {
			buffer[res.Index] = res
			for {
				row, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)

				if err := im.submitRow(bw, sourceID, row, &imported); err != nil {
					// Stop producers so they don't block on resultCh.
					cancel()
					doneCh <- err
					return
				}

				if im.OnProgress != nil && (nextIdx+1)%im.BatchSize == 0 {
					im.OnProgress(nextIdx+1, total)
				}
				nextIdx++
			}
		}
		if im.OnProgress != nil {
			im.OnProgress(total, total)
		}
		doneCh <- nil
	}()

	// Producer: validate rows on the pool.
Loop:
	for i := startIdx; i < total; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		rec := records[i]

		job := func(ctx context.Context) error {
			row := prepareRow(idx, rec)
			select {
			case resultCh <- row:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err == ctx.Err() || err == ErrPoolClosed {
				break Loop
			}
			return 0, err
		}
	}

	// No more jobs; wait for workers, then signal the consumer.
	wp.Close()
	close(resultCh)
	closedResultCh = true

	consumerErr := <-doneCh

	if err := bw.Close(); err != nil && err != ErrBatchWriterClosed && consumerErr == nil {
		consumerErr = err
	}

	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	if consumerErr == nil {
		if err := ctx.Err(); err != nil {
			consumerErr = err
		}
	}

	return int(atomic.LoadInt64(&imported)), consumerErr
}

// submitRow hands one in-order row to the batch writer.
func (im *Importer) submitRow(bw *BatchWriter, sourceID int64, row preparedRow, imported *int64) error {
	if row.Skip {
		// Still checkpoint so a resume does not revisit the row.
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.UpdateImportProgress(tx, sourceID, row.Index)
		})
	}
	return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		termID, err := db.UpsertTerm(tx, row.Term, row.Definition, row.Example)
		if err != nil {
			return fmt.Errorf("import row %d (%q): %w", row.Index, row.Term, err)
		}
		if err := db.LinkTermToSource(tx, termID, sourceID); err != nil {
			return fmt.Errorf("link row %d to import source: %w", row.Index, err)
		}
		for _, label := range row.SourceLabels {
			srcID, err := db.CreateOrGetSource(tx, label, "", "", "")
			if err != nil {
				return fmt.Errorf("create source %q for row %d: %w", label, row.Index, err)
			}
			if err := db.LinkTermToSource(tx, termID, srcID); err != nil {
				return fmt.Errorf("link row %d to source %q: %w", row.Index, label, err)
			}
		}
		if err := db.UpdateImportProgress(tx, sourceID, row.Index); err != nil {
			return fmt.Errorf("save import progress: %w", err)
		}
		atomic.AddInt64(imported, 1)
		return nil
	})
}

// prepareRow validates and cleans one record. Runs on the worker pool.
func prepareRow(index int, rec exchange.Record) preparedRow {
	row := preparedRow{
		Index:      index,
		Term:       strings.TrimSpace(rec.Term),
		Definition: strings.TrimSpace(rec.Definition),
		Example:    strings.TrimSpace(rec.Example),
	}
	if row.Term == "" {
		row.Skip = true
		return row
	}
	seen := make(map[string]bool)
	for _, label := range rec.SourceLabels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		row.SourceLabels = append(row.SourceLabels, label)
	}
	return row
}
