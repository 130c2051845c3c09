package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner lets tests stub the tesseract binary.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		log.Printf("❌ %s failed after %dms: %v (%s)\n", name, time.Since(start).Milliseconds(), err, truncate(errb.String(), 8<<10))
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

type tesseractOCR struct {
	path   string
	lang   string
	runner CommandRunner
}

// NewTesseractOCR runs the local tesseract binary. A nil runner executes the
// real command.
func NewTesseractOCR(path, lang string, runner CommandRunner) OCRProvider {
	if runner == nil {
		runner = execRunner{}
	}
	if lang == "" {
		lang = "chi_sim+eng"
	}
	return &tesseractOCR{path: path, lang: lang, runner: runner}
}

func (t *tesseractOCR) Name() string {
	return ProviderTesseract
}

// Available reports whether the binary is installed.
func (t *tesseractOCR) Available() bool {
	if t.path == "" {
		return false
	}
	_, err := t.runner.LookPath(t.path)
	return err == nil
}

func (t *tesseractOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	out, err := t.run(ctx, image, t.lang)
	if err != nil && t.lang != "eng" {
		// usually a missing language pack
		log.Printf("⚠️  tesseract with %s failed, retrying with eng: %v\n", t.lang, err)
		out, err = t.run(ctx, image, "eng")
	}
	if err != nil {
		return "", err
	}

	return CleanText(out), nil
}

func (t *tesseractOCR) run(ctx context.Context, image []byte, lang string) (string, error) {
	stdout, stderr, err := t.runner.Run(ctx, image, t.path, "stdin", "stdout", "--oem", "3", "--psm", "6", "-l", lang)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", lang, err, strings.TrimSpace(truncate(string(stderr), 512)))
	}
	return string(stdout), nil
}
