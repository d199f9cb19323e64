package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"monthlydata/internal/logging"
	"monthlydata/internal/store"
	"monthlydata/internal/validation"

	"golang.org/x/sync/errgroup"
)

// ProcessedDir is where ImportDir and Watch move files once handled.
const ProcessedDir = "processed"

// RowError reports a rejected line.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e RowError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result counts what an import did.
type Result struct {
	Created  int
	Updated  int
	Rejected []RowError
}

func (r *Result) merge(o Result) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Rejected = append(r.Rejected, o.Rejected...)
}

// Importer upserts CSV rows. Rows whose username+mobile pair already exists update
// that record with the month columns present; others create a record owned by createdBy.
type Importer struct {
	records   store.RecordStore
	createdBy uint
	log       *slog.Logger
}

func New(records store.RecordStore, createdBy uint, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{records: records, createdBy: createdBy, log: log.With(logging.FieldComponent, logging.ComponentImport)}
}

// Import reads every row from r. Invalid rows are collected in Result.Rejected;
// store failures stop the import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	rows, err := ReadRows(r)
	if err != nil {
		return res, err
	}
	for _, row := range rows {
		in := row.Input
		if errs := validation.Validate(&in); errs != nil {
			res.Rejected = append(res.Rejected, RowError{Line: row.Line, Err: errs})
			continue
		}
		created, err := im.upsert(ctx, &in)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", row.Line, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func (im *Importer) upsert(ctx context.Context, in *validation.RecordInput) (bool, error) {
	pair := store.RecordFilter{Username: in.Username.Value, Mobile: in.Mobile.Value}
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := im.records.FindOneRecord(ctx, pair)
		if err == nil {
			if _, err := im.records.UpdateRecordByID(ctx, existing.ID, in.ToUpdate()); err != nil {
				return false, err
			}
			return false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		rec := in.ToRecord(im.createdBy)
		err = im.records.CreateRecord(ctx, &rec)
		if err == nil {
			return true, nil
		}
		// another writer created the pair in between; go round again as an update
		if !errors.Is(err, store.ErrDuplicate) {
			return false, err
		}
	}
	return false, fmt.Errorf("upsert %s/%s: %w", pair.Username, pair.Mobile, store.ErrDuplicate)
}

// ImportFile imports one CSV file and tags rejected rows with its name.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	res, err := im.Import(ctx, f)
	name := filepath.Base(path)
	for i := range res.Rejected {
		res.Rejected[i].File = name
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	im.log.InfoContext(ctx, "Imported file",
		"file", name,
		"created", res.Created,
		"updated", res.Updated,
		"rejected", len(res.Rejected))
	return res, nil
}

// ImportDir imports every *.csv in dir using up to workers goroutines and moves each
// successfully read file into dir/processed.
func (im *Importer) ImportDir(ctx context.Context, dir string, workers int) (Result, error) {
	files, err := listCSVFiles(dir)
	if err != nil {
		return Result{}, err
	}
	var (
		mu    sync.Mutex
		total Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, name := range files {
		g.Go(func() error {
			res, err := im.importAndMove(ctx, dir, name)
			mu.Lock()
			total.merge(res)
			mu.Unlock()
			return err
		})
	}
	err = g.Wait()
	return total, err
}

func (im *Importer) importAndMove(ctx context.Context, dir, name string) (Result, error) {
	res, err := im.ImportFile(ctx, filepath.Join(dir, name))
	if err != nil {
		return res, err
	}
	if err := moveToProcessed(dir, name); err != nil {
		im.log.WarnContext(ctx, "Failed to move imported file", "file", name, logging.FieldError, err)
	}
	return res, nil
}

func listCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func moveToProcessed(dir, name string) error {
	dst := filepath.Join(dir, ProcessedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(dir, name), filepath.Join(dst, name))
}
