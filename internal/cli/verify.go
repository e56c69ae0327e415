package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"script-translator/internal/config"
	"script-translator/internal/filewalker"
	"script-translator/internal/parser"
	"script-translator/internal/worker"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <input-dir>",
		Short: "Check that every file survives a parse and rebuild unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config) error {
				return runVerify(ctx, cfg, args[0], cmd.OutOrStdout())
			})
		},
	}
}

// verifyResult is the round-trip outcome of one file.
type verifyResult struct {
	Entries int
	Diff    string // Empty when the rebuild is identical
}

// runVerify handles the `verify` command. Diffs of failing files go to out.
func runVerify(ctx context.Context, cfg *config.Config, inputDir string, out io.Writer) error {
	w, err := filewalker.NewWalker(cfg.Include, cfg.Exclude)
	if err != nil {
		return err
	}
	files, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	opts := cfg.ParseOptions()
	pool := worker.NewPool(cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (verifyResult, error) {
			return verifyFile(entry, opts)
		},
	)

	mismatched, failed, entries := 0, 0, 0
	for _, task := range pool.Execute(ctx, files) {
		if task.Err != nil {
			failed++
			log.Error().Err(task.Err).Str("file", task.Input.Rel).Msg("Verify failed")
			continue
		}
		entries += task.Result.Entries
		if task.Result.Diff != "" {
			mismatched++
			log.Error().Str("file", task.Input.Rel).Msg("Round trip mismatch")
			fmt.Fprint(out, task.Result.Diff)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info().
		Int("files", len(files)).
		Int("entries", entries).
		Int("mismatched", mismatched).
		Int("failed", failed).
		Msg("Verification complete")

	if mismatched+failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", mismatched+failed, len(files))
	}
	return nil
}

// verifyFile parses a file and rebuilds it without translations.
func verifyFile(entry filewalker.FileEntry, opts parser.Options) (verifyResult, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return verifyResult{}, fmt.Errorf("read file: %w", err)
	}
	res, err := entry.Parser.Parse(data, opts)
	if err != nil {
		return verifyResult{}, fmt.Errorf("parse: %w", err)
	}
	rebuilt, _, err := entry.Parser.Rebuild(data, res.Entries, opts)
	if err != nil {
		return verifyResult{}, fmt.Errorf("rebuild: %w", err)
	}

	r := verifyResult{Entries: len(res.Entries)}
	if !bytes.Equal(data, rebuilt) {
		r.Diff = roundTripDiff(entry.Rel, data, rebuilt)
	}
	return r, nil
}

// roundTripDiff renders a unified diff, or the first differing offset for
// binary content.
func roundTripDiff(name string, want, got []byte) string {
	if !utf8.Valid(want) || !utf8.Valid(got) {
		n := min(len(want), len(got))
		at := n
		for i := 0; i < n; i++ {
			if want[i] != got[i] {
				at = i
				break
			}
		}
		return fmt.Sprintf("Binary files %s differ at offset %d (%d vs %d bytes)\n", name, at, len(want), len(got))
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(string(got)),
		FromFile: name,
		ToFile:   name + " (rebuilt)",
		Context:  2,
	})
	if err != nil {
		return fmt.Sprintf("%s differs (diff failed: %v)\n", name, err)
	}
	return diff
}
