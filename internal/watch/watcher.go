// Package watch triggers pipeline runs automatically, either when new genome
// files land in the input directory or on a cron schedule.
package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
	"github.com/pathogenwatch/amrpipe/internal/normalize"
)

// RunFunc executes one pipeline run
type RunFunc func(ctx context.Context) error

// Watcher triggers runs when sequence files appear in the input directory.
// Events are debounced by the settle delay so a batch of copied files causes
// a single run, and runs never overlap.
type Watcher struct {
	dir    string
	settle time.Duration
	run    RunFunc

	timer   *time.Timer
	trigger chan struct{}
	running bool
	mu      sync.Mutex
}

// New creates a Watcher for dir
func New(dir string, settle time.Duration, run RunFunc) *Watcher {
	return &Watcher{
		dir:     dir,
		settle:  settle,
		run:     run,
		trigger: make(chan struct{}, 1),
	}
}

// Watch blocks, running the pipeline whenever sequence files settle in the
// watched directory, until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	console.Infof("Watching %s for new genome files...", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			console.Warnf("Watch error: %v", err)
		case <-w.trigger:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only sequence files, compressed or not, are interesting
	if !domain.IsSequenceFile(event.Name) && !strings.HasSuffix(event.Name, normalize.GzipSuffix) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Reset the settle timer; the run fires once events stop arriving
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) runOnce(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.run(ctx); err != nil {
		console.Warnf("Triggered run failed: %v", err)
	}
}

// Schedule runs the pipeline on a cron expression instead of file events,
// blocking until the context is cancelled.
func Schedule(ctx context.Context, expr string, run RunFunc) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return err
	}

	console.Infof("Scheduled pipeline runs: %s", expr)

	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := run(ctx); err != nil {
				console.Warnf("Scheduled run failed: %v", err)
			}
		}
	}
}
