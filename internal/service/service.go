package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"jimakugen/internal/config"
	"jimakugen/internal/jobs"
	"jimakugen/internal/library"
	"jimakugen/internal/persistence"
	"jimakugen/pkg/icron"
	"jimakugen/pkg/log"
)

// Runner executes the transcription pipeline for one media file and
// returns the run outcome. The daemon records it and moves on; retry
// decisions live inside the pipeline itself.
type Runner func(ctx context.Context, mediaPath, outputPath string) (persistence.RunRecord, error)

// Service is the long-running daemon: it keeps the library scanned, the
// queue fed and the run history recorded. One worker drains the queue so
// transcription runs never overlap.
type Service struct {
	cfg     config.Config
	scanner *library.Scanner
	queue   *jobs.Queue
	store   *persistence.SQLiteStore
	runner  Runner

	scanGroup singleflight.Group
	cron      *cron.Cron
}

// NewScanner builds the library scanner the daemon uses, with a settle
// window so half-copied files are left alone until the next pass.
func NewScanner(cfg config.Config) *library.Scanner {
	return library.NewScanner(cfg.Library.Dirs, library.WithSettleWindow(30*time.Second))
}

func New(cfg config.Config, scanner *library.Scanner, queue *jobs.Queue, store *persistence.SQLiteStore, runner Runner) *Service {
	return &Service{
		cfg:     cfg,
		scanner: scanner,
		queue:   queue,
		store:   store,
		runner:  runner,
	}
}

// Run starts the daemon and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.queue.Start(ctx, s.execute)
	defer s.queue.Stop()

	if _, err := s.scanAndEnqueue(ctx); err != nil {
		log.Warn("Initial library scan failed: %v", err)
	}

	if expr := s.cfg.Library.CronExpr; expr != "" {
		if info, err := icron.GetTriggerInfo(expr, time.Now()); err != nil {
			log.Warn("Cannot describe rescan schedule %q: %v", expr, err)
		} else {
			log.Info("Scheduled rescan %q, next at %s", expr, info.Next.Format(time.RFC3339))
		}
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(expr, func() {
			s.scanner.Invalidate()
			if _, err := s.scanAndEnqueue(context.Background()); err != nil {
				log.Warn("Scheduled rescan failed: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	watcher, err := s.watchLibrary(ctx)
	if err != nil {
		log.Warn("Filesystem watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	<-ctx.Done()
	log.Info("Daemon shutting down")
	return ctx.Err()
}

// scanAndEnqueue walks the library once and adds a job per candidate.
// Concurrent triggers (watcher bursts, cron overlapping a manual scan)
// are collapsed into a single walk.
func (s *Service) scanAndEnqueue(ctx context.Context) (int, error) {
	v, err, _ := s.scanGroup.Do("scan", func() (any, error) {
		candidates, err := s.scanner.Scan(ctx)
		if err != nil {
			return 0, err
		}
		added := 0
		for _, c := range candidates {
			_, ok := s.queue.Enqueue(jobs.EnqueueRequest{
				Source:    "scan",
				DedupeKey: c.MediaPath,
				Payload: jobs.JobPayload{
					MediaFile:  c.MediaPath,
					OutputFile: c.OutputPath,
				},
			})
			if ok {
				added++
			}
		}
		if added > 0 {
			log.Info("Enqueued %d new transcription jobs", added)
		}
		return added, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// watchLibrary reacts to new media files without waiting for the next
// scheduled scan. Events are debounced through the scanner's own cache
// TTL plus singleflight, so a large copy does not trigger a scan storm.
func (s *Service) watchLibrary(ctx context.Context) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range s.cfg.Library.Dirs {
		if err := watcher.Add(dir); err != nil {
			log.Warn("Cannot watch %s: %v", dir, err)
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				log.Debug("Watcher event: %s %s", event.Op, event.Name)
				// New subdirectories need their own watch.
				if filepath.Ext(event.Name) == "" {
					_ = watcher.Add(event.Name)
				}
				s.scanner.Invalidate()
				if _, err := s.scanAndEnqueue(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Watcher-triggered scan failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Watcher error: %v", err)
			}
		}
	}()
	return watcher, nil
}

// execute runs one queued job through the pipeline and records the result.
func (s *Service) execute(ctx context.Context, job *jobs.TranscriptionJob) error {
	log.Info("Running job %s for %s", job.ID, job.Payload.MediaFile)

	record, runErr := s.runner(ctx, job.Payload.MediaFile, job.Payload.OutputFile)
	if s.store != nil {
		if err := s.store.SaveRun(ctx, record); err != nil {
			log.Warn("Failed to record run for %s: %v", job.Payload.MediaFile, err)
		}
	}
	return runErr
}
