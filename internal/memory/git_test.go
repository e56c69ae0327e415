package memory

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-translator/internal/parser"
)

// extDetector picks the INI adapter for .ini files only.
type extDetector struct{}

func (extDetector) Detect(path string, data []byte) (parser.Parser, float64, bool) {
	p := parser.NewINIParser()
	if !p.CanParse(filepath.Ext(path)) {
		return nil, 0, false
	}
	return p, 1, true
}

func gitRepo(t *testing.T) (string, func(args ...string) string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}
	run("init", "-q")
	return dir, run
}

func TestGitIngest(t *testing.T) {
	dir, git := gitRepo(t)
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("data/ui.ini", "[ui]\ntitle = スタート\nquit = 終了\n")
	write("data/notes.md", "原文\n")
	git("add", ".")
	git("commit", "-q", "-m", "original")
	base := git("rev-parse", "HEAD")

	write("data/ui.ini", "[ui]\ntitle = Start\nquit = 終了\n")
	write("data/notes.md", "translated\n")
	write("data/new.ini", "[x]\na = b\n")
	git("add", ".")
	git("commit", "-q", "-m", "translated")

	gi := NewGitIngestor(dir, extDetector{}, parser.Options{})
	pairs, err := gi.Ingest(context.Background(), base, "HEAD", "data")
	require.NoError(t, err)
	assert.Equal(t, []Pair{NewPair("スタート", "Start", "ini", "data/ui.ini")}, pairs)
}

func TestGitIngestBadRef(t *testing.T) {
	dir, _ := gitRepo(t)
	gi := NewGitIngestor(dir, extDetector{}, parser.Options{})
	_, err := gi.Ingest(context.Background(), "nope", "HEAD", "")
	assert.Error(t, err)
}
