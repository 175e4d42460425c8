package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jimakugen/internal/gemini"
	"jimakugen/internal/seriesctx"
	"jimakugen/pkg/log"
)

func newContextCommand(cmdCtx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "context <series title>",
		Short: "Generate a reusable series context file for better name spelling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := gemini.NewClient(cmd.Context(), cfg.Transcribe)
			if err != nil {
				return err
			}

			gen := seriesctx.NewGenerator(seriesctx.NewWikipediaClient(""), client)
			text, err := gen.Generate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Println(text)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(text+"\n"), 0644); err != nil {
				return fmt.Errorf("write context file: %w", err)
			}
			log.Info("Wrote series context to %s", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the context to a file instead of stdout")
	return cmd
}
