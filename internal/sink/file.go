package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File writes the latest report to a single path, replacing the previous
// one. The write goes through a temp file and rename so readers never see
// a partial report.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (s *File) Name() string { return "file" }

func (s *File) Deliver(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	content := subject + "\r\n\r\n" + body + "\r\n"
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}
