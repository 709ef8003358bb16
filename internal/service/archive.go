package service

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
)

// ContentArchive keeps a human-readable HTML copy of every draft for review.
type ContentArchive struct {
	dir string
}

// NewContentArchive returns nil when dir is empty, which disables archiving.
func NewContentArchive(dir string) *ContentArchive {
	if dir == "" {
		return nil
	}
	return &ContentArchive{dir: dir}
}

func (a *ContentArchive) Save(id, title, body string) error {
	if a == nil {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	path := filepath.Join(a.dir, filepath.Base(id)+".html")
	data := fmt.Sprintf("<h1>%s</h1>\n%s", html.EscapeString(title), body)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}
	return nil
}
