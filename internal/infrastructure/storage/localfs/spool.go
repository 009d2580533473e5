package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Spool writes incoming uploads to a temp directory before the pipeline takes
// ownership of them.
type Spool struct {
	dir string
}

func NewSpool(dir string) (*Spool, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docintel-uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

func (s *Spool) Dir() string {
	return s.dir
}

// Write copies r into a new temp file and returns its path and size. At most
// limit bytes are accepted when limit is positive.
func (s *Spool) Write(originalName string, r io.Reader, limit int64) (string, int64, error) {
	f, err := os.CreateTemp(s.dir, "upload-*"+strings.ToLower(filepath.Ext(originalName)))
	if err != nil {
		return "", 0, fmt.Errorf("create temp upload: %w", err)
	}
	path := f.Name()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && n > limit {
		err = fmt.Errorf("upload %s exceeds %d bytes", originalName, limit)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write temp upload: %w", err)
	}
	return path, n, nil
}

// Claim moves an existing file into the spool so the pipeline can own it.
func (s *Spool) Claim(path string) (string, error) {
	dest := filepath.Join(s.dir, "inbox-"+filepath.Base(path))
	err := os.Rename(path, dest)
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("claim %s: %w", path, err)
	}
	if err := copyFile(path, dest); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("claim %s: %w", path, err)
	}
	return dest, os.Remove(path)
}
