package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := "dedup:\n  driver: file\n  path: " + filepath.Join(dir, "history.json") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func TestRootShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "dedup")
}

func TestNormalize(t *testing.T) {
	out, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "none.env"), "normalize", "Кастинг", "@agency", "12.05!")
	require.NoError(t, err)
	assert.Equal(t, "кастинг 0\n", out)
}

func TestDedupCheckDryRunThenRecord(t *testing.T) {
	cfg := writeConfig(t)
	env := filepath.Join(t.TempDir(), "none.env")
	text := "Ищем актрису 25 лет, съёмки 12.05"

	out, err := execute(t, "--env-file", env, "-c", cfg, "dedup", "check", "--text", text)
	require.NoError(t, err)
	assert.Contains(t, out, "duplicate:   false (new)")

	out, err = execute(t, "--env-file", env, "-c", cfg, "dedup", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "history is empty", "dry run writes nothing")

	_, err = execute(t, "--env-file", env, "-c", cfg, "dedup", "check", "--text", text, "--record")
	require.NoError(t, err)

	out, err = execute(t, "--env-file", env, "-c", cfg, "dedup", "check", "--text", text)
	require.NoError(t, err)
	assert.Contains(t, out, "duplicate:   true (exact)")

	out, err = execute(t, "--env-file", env, "-c", cfg, "dedup", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "  1  ищем актрису 0 лет съёмки 0")
}

func TestDedupCheckNeedsText(t *testing.T) {
	_, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "none.env"), "-c", writeConfig(t), "dedup", "check")
	assert.ErrorContains(t, err, "--text or --ocr is required")
}
