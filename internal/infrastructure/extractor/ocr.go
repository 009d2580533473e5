package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultOCRBinary    = "tesseract"
	DefaultOCRLanguages = "eng+mal"
)

// OCRProgress is an informational event emitted while an image is recognized.
type OCRProgress struct {
	Path     string
	Stage    string
	Progress float64
}

// ProgressObserver receives OCR progress. Observers cannot influence the
// recognition result; a panicking observer is ignored.
type ProgressObserver func(OCRProgress)

type OCRConfig struct {
	Binary    string
	Languages string
	// Timeout bounds a single recognition. Zero means no bound.
	Timeout  time.Duration
	Observer ProgressObserver
}

// OCR runs the tesseract CLI against image files.
type OCR struct {
	binary    string
	languages string
	timeout   time.Duration
	observer  ProgressObserver
}

func NewOCR(cfg OCRConfig) *OCR {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = DefaultOCRBinary
	}
	languages := strings.TrimSpace(cfg.Languages)
	if languages == "" {
		languages = DefaultOCRLanguages
	}
	return &OCR{
		binary:    binary,
		languages: languages,
		timeout:   cfg.Timeout,
		observer:  cfg.Observer,
	}
}

// Available reports whether the OCR binary can be executed.
func (o *OCR) Available() bool {
	return exec.Command(o.binary, "--version").Run() == nil
}

func (o *OCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.emit(OCRProgress{Path: imagePath, Stage: "recognizing text", Progress: 0})

	cmd := exec.CommandContext(ctx, o.binary, imagePath, "stdout", "-l", o.languages)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract %s: %w", o.languages, ctx.Err())
		}
		return "", fmt.Errorf("tesseract %s: %w: %s", o.languages, err, strings.TrimSpace(stderr.String()))
	}

	o.emit(OCRProgress{Path: imagePath, Stage: "recognizing text", Progress: 1})
	return stdout.String(), nil
}

func (o *OCR) emit(event OCRProgress) {
	if o.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("ocr_progress_observer_panic", "path", event.Path, "panic", fmt.Sprint(r))
		}
	}()
	o.observer(event)
}

// LogProgress is a ProgressObserver writing debug log events.
func LogProgress(event OCRProgress) {
	slog.Debug("ocr_progress",
		"path", event.Path,
		"step", event.Stage,
		"progress", fmt.Sprintf("%.1f%%", event.Progress*100),
	)
}
