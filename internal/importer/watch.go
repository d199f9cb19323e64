package importer

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"monthlydata/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceStable = 300 * time.Millisecond
)

// FileResult is reported once per file picked up by Watch.
type FileResult struct {
	Name   string
	Result Result
	Err    error
}

// Watch imports CSV files as they appear in dir until ctx is done. A file is imported
// once no new events arrived for it for a short while, so partially written files
// are left alone. Files already in dir are not touched; run ImportDir first for those.
func (im *Importer) Watch(ctx context.Context, dir string, workers int, report func(FileResult)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	im.log.InfoContext(ctx, "Watching directory", "dir", dir)

	fileCh := make(chan string, 256)
	var wg sync.WaitGroup
	for i := 0; i < max(workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				res, err := im.importAndMove(ctx, dir, name)
				if err != nil {
					im.log.ErrorContext(ctx, "Import failed", "file", name, logging.FieldError, err)
				}
				if report != nil {
					report(FileResult{Name: name, Result: res, Err: err})
				}
			}
		}()
	}
	defer wg.Wait()
	defer close(fileCh)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isCSV(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > debounceStable {
					delete(pending, name)
					select {
					case fileCh <- name:
					case <-ctx.Done():
						return nil
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.log.WarnContext(ctx, "Watch error", logging.FieldError, err)
		}
	}
}
