package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"script-translator/internal/config"
	"script-translator/internal/filewalker"
	"script-translator/internal/parser"
	"script-translator/internal/session"
	"script-translator/internal/worker"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input-dir> <session-file>",
		Short: "Extract translatable entries into a session file",
		Long: `Walks the input directory, detects the format of every file, parses them in
parallel and writes all translatable entries to a session file. The file type
follows the extension (.json, .tsv, optionally followed by .xz).
Entries already present in the translation memory are pre-filled.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return run(func(ctx context.Context, cfg *config.Config) error {
				if format != "" {
					f, err := session.ParseFormat(format)
					if err != nil {
						return err
					}
					cfg.ExportFormat = f
				}
				return runExtract(ctx, cfg, args[0], args[1])
			})
		},
	}

	cmd.Flags().String("format", "", "Session format when the extension does not name one: json or tsv")

	return cmd
}

// parseAll parses every discovered file with the worker pool.
func parseAll(ctx context.Context, cfg *config.Config, w *filewalker.Walker, files []filewalker.FileEntry) []worker.Task[filewalker.FileEntry, *parser.ParseResult] {
	opts := cfg.ParseOptions()
	pool := worker.NewPool(cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (*parser.ParseResult, error) {
			return w.ParseFile(entry, opts)
		},
	)
	return pool.Execute(ctx, files)
}

// runExtract handles the `extract` command.
func runExtract(ctx context.Context, cfg *config.Config, inputDir, sessionPath string) error {
	w, err := filewalker.NewWalker(cfg.Include, cfg.Exclude)
	if err != nil {
		return err
	}
	files, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	mem, err := openMemory(ctx, cfg)
	if err != nil {
		return err
	}
	defer mem.Close()

	log.Info().Int("files", len(files)).Msg("Starting extraction")

	root, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input directory: %w", err)
	}
	s := session.New(root, cfg.SourceLanguage)

	failed, filled := 0, 0
	for _, task := range parseAll(ctx, cfg, w, files) {
		if task.Err != nil {
			failed++
			log.Error().Err(task.Err).Str("file", task.Input.Rel).Msg("Parse failed")
			continue
		}
		res := task.Result
		filled += mem.Fill(ctx, res.Entries)
		added := s.Add(task.Input.Rel, res)

		for _, skip := range res.Skipped {
			log.Warn().Err(skip).Str("file", task.Input.Rel).Msg("Region skipped")
		}
		log.Debug().
			Str("file", task.Input.Rel).
			Str("format", res.Format).
			Int("entries", added).
			Msg("File extracted")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Write(sessionPath, cfg.ExportFormat); err != nil {
		return err
	}

	log.Info().
		Int("files", len(files)).
		Int("failed", failed).
		Int("entries", len(s.Records)).
		Int("from_memory", filled).
		Str("session", s.ID).
		Msg("Extraction complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(files))
	}
	return nil
}
