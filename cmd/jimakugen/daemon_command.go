package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jimakugen/internal/cache"
	"jimakugen/internal/config"
	"jimakugen/internal/gemini"
	"jimakugen/internal/httpapi"
	"jimakugen/internal/jobs"
	"jimakugen/internal/media"
	"jimakugen/internal/persistence"
	"jimakugen/internal/pipeline"
	"jimakugen/internal/service"
	"jimakugen/internal/subtitle"
	"jimakugen/pkg/log"
)

func newDaemonCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch library directories and transcribe new media automatically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Library.Dirs) == 0 {
				return fmt.Errorf("daemon mode needs at least one library directory (library.dirs)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			transcriber, err := gemini.NewClient(ctx, cfg.Transcribe)
			if err != nil {
				return err
			}

			store, err := persistence.NewSQLiteStore(cfg.Library.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			scanner := service.NewScanner(*cfg)
			queue := jobs.NewQueue(1, store)
			runner := newPipelineRunner(*cfg, transcriber)
			svc := service.New(*cfg, scanner, queue, store, runner)

			if addr := cfg.Library.HTTPAddr; addr != "" {
				api := httpapi.NewServer(scanner, queue, store)
				go func() {
					log.Info("Status API listening on %s", addr)
					if err := api.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("Status API stopped: %v", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = api.Shutdown(shutdownCtx)
				}()
			}

			err = svc.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}

// newPipelineRunner adapts the pipeline to the daemon's Runner shape,
// folding each report into a stored run record.
func newPipelineRunner(cfg config.Config, transcriber gemini.Transcriber) service.Runner {
	store := cache.NewStore(cfg.Cache.Dir)
	writer := subtitle.NewSRTWriter()

	return func(ctx context.Context, mediaPath, outputPath string) (persistence.RunRecord, error) {
		started := time.Now().UTC()
		orch := pipeline.New(cfg, pipeline.Options{
			MediaPath:  mediaPath,
			OutputPath: outputPath,
		}, media.NewBackend(cfg.Media, mediaPath), transcriber, store, writer)

		report, err := orch.Run(ctx)

		record := persistence.RunRecord{
			MediaPath:  mediaPath,
			OutputPath: outputPath,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}
		if report != nil {
			record.ChunksTotal = len(report.Chunks)
			record.Accepted = report.Accepted()
			record.CacheHits = report.CacheHits()
			record.Failed = report.Failed()
			record.Unattempted = report.Unattempted()
		}
		if err != nil {
			record.Error = err.Error()
		}
		return record, err
	}
}
