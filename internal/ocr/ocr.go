// Package ocr extracts text from casting images with the tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	logx "castbot/pkg/logx"
)

// Reader returns the text found in an image file.
type Reader interface {
	Text(ctx context.Context, path string) (string, error)
}

// Nop finds no text.
type Nop struct{}

func (Nop) Text(context.Context, string) (string, error) { return "", nil }

type Config struct {
	Command   string // default "tesseract"
	Languages string // default "rus+eng"
	Timeout   time.Duration
}

type Tesseract struct {
	cfg Config
	log logx.Logger
}

func NewTesseract(cfg Config, log logx.Logger) *Tesseract {
	if cfg.Command == "" {
		cfg.Command = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "rus+eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tesseract{cfg: cfg, log: log.With(logx.Component("ocr"))}
}

// Available reports whether the command can be found on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.cfg.Command)
	return err == nil
}

func (t *Tesseract) Text(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.cfg.Command, path, "stdout", "-l", t.cfg.Languages)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ocr: %w", ctx.Err())
		}
		return "", fmt.Errorf("ocr: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Extract is the fail-soft form used by the pipeline: any error is logged
// and yields empty text.
func Extract(ctx context.Context, r Reader, path string, log logx.Logger) string {
	if r == nil || path == "" {
		return ""
	}
	text, err := r.Text(ctx, path)
	if err != nil {
		log.Warn("ocr failed", logx.String("path", path), logx.Err(err))
		return ""
	}
	return text
}
