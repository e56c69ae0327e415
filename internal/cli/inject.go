package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"script-translator/internal/config"
	"script-translator/internal/filewalker"
	"script-translator/internal/parser"
	"script-translator/internal/placeholder"
	"script-translator/internal/session"
	"script-translator/internal/textutil"
	"script-translator/internal/worker"
)

func injectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inject <input-dir> <session-file> <output-dir>",
		Short: "Write session translations back into the game files",
		Long: `Re-parses every file of the input directory, merges the session translations
by entry ID and writes the rebuilt files under the output directory. Entries
whose file changed since extraction are skipped and reported.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config) error {
				return runInject(ctx, cfg, args[0], args[1], args[2])
			})
		},
	}
}

// injectResult summarizes the rebuild of one file.
type injectResult struct {
	Merged    int
	Unmatched int
	Applied   int
	Skipped   int
	Warnings  int
}

// runInject handles the `inject` command.
func runInject(ctx context.Context, cfg *config.Config, inputDir, sessionPath, outputDir string) error {
	s, err := session.Read(sessionPath, cfg.ExportFormat)
	if err != nil {
		return err
	}
	idx := s.Index()

	inputAbs, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input directory: %w", err)
	}
	outputAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if inputAbs == outputAbs {
		return fmt.Errorf("output directory must differ from input directory: %s", outputAbs)
	}

	w, err := filewalker.NewWalker(cfg.Include, cfg.Exclude)
	if err != nil {
		return err
	}
	files, err := w.Walk(inputAbs)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	log.Info().
		Int("files", len(files)).
		Int("translations", s.Translated()).
		Str("session", s.ID).
		Msg("Starting injection")

	opts := cfg.ParseOptions()
	pool := worker.NewPool(cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (injectResult, error) {
			return injectFile(entry, idx, opts, filepath.Join(outputAbs, filepath.FromSlash(entry.Rel)))
		},
	)

	var total injectResult
	failed := 0
	for _, task := range pool.Execute(ctx, files) {
		if task.Err != nil {
			failed++
			log.Error().Err(task.Err).Str("file", task.Input.Rel).Msg("Inject failed")
			continue
		}
		r := task.Result
		total.Merged += r.Merged
		total.Unmatched += r.Unmatched
		total.Applied += r.Applied
		total.Skipped += r.Skipped
		total.Warnings += r.Warnings
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info().
		Int("files", len(files)).
		Int("failed", failed).
		Int("applied", total.Applied).
		Int("skipped", total.Skipped).
		Int("unmatched", total.Unmatched).
		Int("placeholder_warnings", total.Warnings).
		Str("output", outputAbs).
		Msg("Injection complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to rebuild", failed, len(files))
	}
	return nil
}

// injectFile rebuilds one file with the session translations and writes it to outPath.
func injectFile(entry filewalker.FileEntry, idx session.Index, opts parser.Options, outPath string) (injectResult, error) {
	var r injectResult

	res, err := parser.ParseFile(entry.Parser, entry.Path, opts)
	if err != nil {
		return r, err
	}
	r.Merged = idx.Merge(entry.Rel, res.Entries)
	r.Unmatched = len(idx[entry.Rel]) - r.Merged
	if r.Unmatched > 0 {
		log.Warn().
			Str("file", entry.Rel).
			Int("count", r.Unmatched).
			Msg("Session entries do not match the current file")
	}

	for _, e := range res.Entries {
		if e.Translation == "" {
			continue
		}
		if missing := placeholder.Missing(e.Original, e.Translation); len(missing) > 0 {
			r.Warnings++
			log.Warn().
				Str("file", entry.Rel).
				Str("id", e.ID).
				Str("text", textutil.Truncate(e.Original, 30)).
				Str("missing", strings.Join(missing, " ")).
				Msg("Translation drops placeholders")
		}
	}

	out, report, err := parser.RebuildFile(entry.Parser, entry.Path, res.Entries, opts)
	if err != nil {
		return r, err
	}
	r.Applied = report.Applied
	r.Skipped = len(report.Skipped)
	for _, skip := range report.Skipped {
		log.Warn().Err(skip).Str("file", entry.Rel).Msg("Entry not injected")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return r, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return r, fmt.Errorf("write output file: %w", err)
	}

	log.Debug().
		Str("input", entry.Path).
		Str("output", outPath).
		Int("translations", r.Applied).
		Msg("File rebuilt")
	return r, nil
}
