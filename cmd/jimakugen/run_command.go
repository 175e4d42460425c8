package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jimakugen/internal/cache"
	"jimakugen/internal/config"
	"jimakugen/internal/gemini"
	"jimakugen/internal/media"
	"jimakugen/internal/pipeline"
	"jimakugen/internal/subtitle"
	"jimakugen/pkg/log"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath  string
		contextFile string
		model       string
		chunkSize   int
		limit       int
		keepTemp    bool
		onError     string
	)

	cmd := &cobra.Command{
		Use:   "run <media file>...",
		Short: "Transcribe one or more media files to Japanese SRT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputPath != "" && len(args) > 1 {
				return fmt.Errorf("-o only applies to a single input file")
			}

			runCfg := *cfg
			if model != "" {
				runCfg.Transcribe.Model = model
			}
			if chunkSize > 0 {
				runCfg.Chunking.TargetDurationS = chunkSize
			}
			if limit > 0 {
				runCfg.Pipeline.Limit = limit
			}
			if keepTemp {
				runCfg.Pipeline.KeepTemp = true
			}
			if onError != "" {
				runCfg.Pipeline.OnChunkError = config.ChunkErrorPolicy(onError)
				switch runCfg.Pipeline.OnChunkError {
				case config.ChunkErrorAbort, config.ChunkErrorSkip:
				default:
					return fmt.Errorf("--on-error must be %q or %q", config.ChunkErrorAbort, config.ChunkErrorSkip)
				}
			}

			seriesContext := ""
			if contextFile != "" {
				data, err := os.ReadFile(contextFile)
				if err != nil {
					return fmt.Errorf("read context file: %w", err)
				}
				seriesContext = strings.TrimSpace(string(data))
			}

			transcriber, err := gemini.NewClient(cmd.Context(), runCfg.Transcribe)
			if err != nil {
				return err
			}
			store := cache.NewStore(runCfg.Cache.Dir)
			writer := subtitle.NewSRTWriter()

			for _, mediaPath := range args {
				if _, err := os.Stat(mediaPath); err != nil {
					return fmt.Errorf("media file %s: %w", mediaPath, err)
				}
				orch := pipeline.New(runCfg, pipeline.Options{
					MediaPath:     mediaPath,
					OutputPath:    outputPath,
					SeriesContext: seriesContext,
				}, media.NewBackend(runCfg.Media, mediaPath), transcriber, store, writer)

				report, err := orch.Run(cmd.Context())
				printReport(report)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output SRT path (single input only)")
	cmd.Flags().StringVar(&contextFile, "context", "", "File with series context to include in prompts")
	cmd.Flags().StringVar(&model, "model", "", "Override the transcription model")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Target chunk duration in seconds")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process only the first N chunks")
	cmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "Keep extracted audio clips for inspection")
	cmd.Flags().StringVar(&onError, "on-error", "", "Chunk failure policy: abort or skip")

	return cmd
}

func printReport(report *pipeline.Report) {
	if report == nil || len(report.Chunks) == 0 {
		return
	}
	log.Info("%s: %d chunks, %d accepted (%d cached), %d failed, %d unattempted",
		report.Source, len(report.Chunks), report.Accepted(), report.CacheHits(),
		report.Failed(), report.Unattempted())
}
