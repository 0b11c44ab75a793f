package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// cliEngine runs the tesseract binary once per page.
type cliEngine struct {
	path      string
	languages string
	psm       int
	prefix    string
	version   string
}

func newTesseractCLI(cfg Config) (Engine, error) {
	name := cfg.TesseractPath
	if name == "" {
		name = "tesseract"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}

	out, err := exec.Command(path, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s --version: %v", ErrRecognitionUnavailable, path, err)
	}

	return &cliEngine{
		path:      path,
		languages: cfg.languages(),
		psm:       cfg.pageSegMode(),
		prefix:    cfg.TessdataPrefix,
		version:   parseCLIVersion(string(out)),
	}, nil
}

// parseCLIVersion reads "tesseract 5.3.0" from the first line of
// `tesseract --version`.
func parseCLIVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(line)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "tesseract") {
		return strings.TrimPrefix(fields[1], "v")
	}
	return strings.TrimSpace(line)
}

func (e *cliEngine) Kind() Kind      { return KindTesseractCLI }
func (e *cliEngine) Version() string { return e.version }

func (e *cliEngine) args(input string) []string {
	args := []string{input, "stdout", "-l", e.languages, "--oem", "3", "--psm", strconv.Itoa(e.psm)}
	if e.prefix != "" {
		args = append(args, "--tessdata-dir", e.prefix)
	}
	return args
}

// ExtractText writes img to a temporary PNG and runs tesseract on it. The
// process is killed when ctx is cancelled.
func (e *cliEngine) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	input, err := writeTempPNG(img, "invoice-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(input)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, e.args(input)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("tesseract exited with %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return stdout.String(), nil
}
