package ocr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "castbot/pkg/logx"
)

// fakeTesseract writes a shell script standing in for the tesseract CLI.
func fakeTesseract(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	p := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestTesseractArgsAndOutput(t *testing.T) {
	t.Parallel()
	cmd := fakeTesseract(t, `echo "  $1|$2|$3|$4  "`)
	r := NewTesseract(Config{Command: cmd}, logx.Nop())

	got, err := r.Text(context.Background(), "/tmp/poster.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/poster.jpg|stdout|-l|rus+eng", got)
}

func TestTesseractFailure(t *testing.T) {
	t.Parallel()
	cmd := fakeTesseract(t, `echo "bad image" >&2; exit 1`)
	r := NewTesseract(Config{Command: cmd}, logx.Nop())

	_, err := r.Text(context.Background(), "x.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
	assert.Equal(t, "", Extract(context.Background(), r, "x.jpg", logx.Nop()))
}

func TestTesseractTimeout(t *testing.T) {
	t.Parallel()
	cmd := fakeTesseract(t, `exec sleep 5`)
	r := NewTesseract(Config{Command: cmd, Timeout: 50 * time.Millisecond}, logx.Nop())

	_, err := r.Text(context.Background(), "x.jpg")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtractNop(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Extract(context.Background(), Nop{}, "x.jpg", logx.Nop()))
	assert.Equal(t, "", Extract(context.Background(), nil, "x.jpg", logx.Nop()))
}
