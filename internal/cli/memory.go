package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"script-translator/internal/config"
	"script-translator/internal/filewalker"
	"script-translator/internal/memory"
	"script-translator/internal/parser"
	"script-translator/internal/session"
)

// memoryBatchSize bounds the pairs written per store round trip.
const memoryBatchSize = 200

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the translation memory",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <session-file>",
		Short: "Store the translated entries of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config) error {
				return runMemoryImport(ctx, cfg, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "align <original-file> <translated-file>",
		Short: "Store entries of an already translated file paired with its original",
		Long: `Parses two versions of the same file with the adapter detected for the
original and stores their entries, paired by position, in the translation memory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config) error {
				return runMemoryAlign(ctx, cfg, args[0], args[1])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "align-git <commit-base> <commit-target> [folder]",
		Short: "Store entries of files translated between two Git commits",
		Long: `Compares every file modified between two commits of the Git repository in the
current directory. The base commit holds the original text and the target
commit the translation; their entries are paired by position.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 3 {
				folder = args[2]
			}
			return run(func(ctx context.Context, cfg *config.Config) error {
				repoRoot, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("get working directory: %w", err)
				}
				return runMemoryAlignGit(ctx, cfg, repoRoot, args[0], args[1], folder)
			})
		},
	})
	return cmd
}

// storePairs writes pairs to the configured memory.
func storePairs(ctx context.Context, cfg *config.Config, pairs []memory.Pair) (int, error) {
	if cfg.MemoryDSN == "" {
		log.Warn().Msg("MEMORY_DSN is not set, pairs will not be persisted")
	}
	mem, err := memory.Open(ctx, cfg.MemoryDSN)
	if err != nil {
		return 0, fmt.Errorf("open translation memory: %w", err)
	}
	defer mem.Close()

	return mem.SetBatch(ctx, pairs, memoryBatchSize)
}

// runMemoryImport handles the `memory import` command.
func runMemoryImport(ctx context.Context, cfg *config.Config, sessionPath string) error {
	s, err := session.Read(sessionPath, cfg.ExportFormat)
	if err != nil {
		return err
	}
	stored, err := storePairs(ctx, cfg, memory.SessionPairs(s))
	if err != nil {
		return err
	}

	log.Info().
		Str("session", s.ID).
		Int("records", len(s.Records)).
		Int("stored", stored).
		Msg("Imported session into translation memory")
	return nil
}

// runMemoryAlign handles the `memory align` command.
func runMemoryAlign(ctx context.Context, cfg *config.Config, origPath, transPath string) error {
	w, err := filewalker.NewWalker(nil, nil)
	if err != nil {
		return err
	}
	entry, ok, err := w.Classify(origPath)
	if err != nil {
		return fmt.Errorf("classify %s: %w", origPath, err)
	}
	if !ok {
		return fmt.Errorf("no adapter recognises %s", origPath)
	}

	opts := cfg.ParseOptions()
	orig, err := parser.ParseFile(entry.Parser, origPath, opts)
	if err != nil {
		return err
	}
	trans, err := parser.ParseFile(entry.Parser, transPath, opts)
	if err != nil {
		return err
	}

	stored, err := storePairs(ctx, cfg, memory.Align(orig, trans))
	if err != nil {
		return err
	}

	log.Info().
		Str("format", orig.Format).
		Str("original", origPath).
		Str("translated", transPath).
		Int("stored", stored).
		Msg("Aligned files into translation memory")
	return nil
}

// runMemoryAlignGit handles the `memory align-git` command.
func runMemoryAlignGit(ctx context.Context, cfg *config.Config, repoRoot, base, target, folder string) error {
	w, err := filewalker.NewWalker(nil, nil)
	if err != nil {
		return err
	}

	log.Info().
		Str("base", base).
		Str("target", target).
		Str("folder", folder).
		Msg("Starting memory ingestion from Git")

	pairs, err := memory.NewGitIngestor(repoRoot, w, cfg.ParseOptions()).Ingest(ctx, base, target, folder)
	if err != nil {
		return fmt.Errorf("git ingestion: %w", err)
	}
	if len(pairs) == 0 {
		log.Warn().Msg("No translation pairs found in Git diff")
		return nil
	}

	stored, err := storePairs(ctx, cfg, pairs)
	if err != nil {
		return err
	}
	log.Info().Int("pairs", len(pairs)).Int("stored", stored).Msg("Git ingestion stored")
	return nil
}
