package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"

	"photofilter/internal/engine"
)

// FileStore writes results into a directory as <kind>-<result id>.<ext>.
type FileStore struct {
	Dir     string
	Format  Format
	Quality int
}

func NewFileStore(dir string, format Format, quality int) *FileStore {
	return &FileStore{Dir: dir, Format: format, Quality: quality}
}

func (s *FileStore) Save(ctx context.Context, result *engine.RenderResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s%s", strings.ToLower(result.Kind.String()), result.ID, s.Format.Extension())
	path := filepath.Join(s.Dir, name)

	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, result.Image, s.Format, s.Quality); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode %s: %w", s.Format, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// URIStore writes to a location chosen by the host, typically the
// URIWriteCloser handed back by a fyne save dialog.
type URIStore struct {
	Open    func() (fyne.URIWriteCloser, error)
	Quality int
}

func (s *URIStore) Save(ctx context.Context, result *engine.RenderResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Open == nil {
		return "", fmt.Errorf("no save location")
	}

	writer, err := s.Open()
	if err != nil {
		return "", err
	}

	uri := writer.URI()
	format := FormatForExtension(uri.Extension())
	if err := Encode(writer, result.Image, format, s.Quality); err != nil {
		writer.Close()
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return uri.String(), nil
}
