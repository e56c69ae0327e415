package memory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"script-translator/internal/parser"
)

// Detector picks the adapter for a file from its name and content.
type Detector interface {
	Detect(path string, data []byte) (parser.Parser, float64, bool)
}

// GitIngestor extracts translation pairs from files changed between two
// revisions of a git repository, where the base revision holds the original
// text and the target the translated one.
type GitIngestor struct {
	repo     string
	detector Detector
	opts     parser.Options
}

// NewGitIngestor creates an ingestor for the repository at repoRoot.
func NewGitIngestor(repoRoot string, detector Detector, opts parser.Options) *GitIngestor {
	return &GitIngestor{repo: repoRoot, detector: detector, opts: opts}
}

// Ingest aligns every supported file modified between base and target under folder.
func (gi *GitIngestor) Ingest(ctx context.Context, base, target, folder string) ([]Pair, error) {
	files, err := gi.changedFiles(ctx, base, target, folder)
	if err != nil {
		return nil, fmt.Errorf("get changed files: %w", err)
	}

	log.Info().Int("files", len(files)).Msg("Found changed files in Git diff")

	var all []Pair
	for _, file := range files {
		pairs, err := gi.alignFile(ctx, base, target, file)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("Failed to align file versions")
			continue
		}
		all = append(all, pairs...)
	}

	log.Info().Int("total_pairs", len(all)).Msg("Git ingestion complete")
	return all, nil
}

func (gi *GitIngestor) alignFile(ctx context.Context, base, target, file string) ([]Pair, error) {
	orig, err := gi.show(ctx, base, file)
	if err != nil {
		return nil, err
	}
	p, _, ok := gi.detector.Detect(file, orig)
	if !ok {
		log.Debug().Str("file", file).Msg("Unsupported file in Git diff")
		return nil, nil
	}
	trans, err := gi.show(ctx, target, file)
	if err != nil {
		return nil, err
	}

	origRes, err := p.Parse(orig, gi.opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s at %s: %w", file, base, err)
	}
	transRes, err := p.Parse(trans, gi.opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s at %s: %w", file, target, err)
	}
	origRes.FilePath = file
	return Align(origRes, transRes), nil
}

// changedFiles lists files modified (not added or deleted) between two commits in a folder.
func (gi *GitIngestor) changedFiles(ctx context.Context, base, target, folder string) ([]string, error) {
	args := []string{"diff", "--name-only", "--diff-filter=M", base, target}
	if folder != "" {
		args = append(args, "--", folder)
	}
	output, err := gi.git(ctx, args...)
	if err != nil {
		return nil, err
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, line)
		}
	}
	return files, scanner.Err()
}

// show returns the content of file at ref.
func (gi *GitIngestor) show(ctx context.Context, ref, file string) ([]byte, error) {
	return gi.git(ctx, "show", ref+":"+file)
}

func (gi *GitIngestor) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = gi.repo

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
