package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"lillith/models"
)

// Source is one document to ingest together with its resolved metadata.
type Source struct {
	Path     string
	Metadata models.Metadata
}

// IsSupported reports whether path has an extension the loader handles.
func IsSupported(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ResolveSources expands root into the documents to ingest. A directory is
// walked recursively in lexical order. Files get their parent folder name as
// the source tag unless meta.Source is set; files directly under root (or a
// single file) get defaultTag. An empty title defaults to the file name.
func ResolveSources(root string, meta models.Metadata, defaultTag string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", root, err)
	}

	if !info.IsDir() {
		if !IsSupported(root) {
			return nil, fmt.Errorf("source %s: unsupported file type %q", root, filepath.Ext(root))
		}
		return []Source{{Path: root, Metadata: resolveMetadata(root, "", meta, defaultTag)}}, nil
	}

	var sources []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}

		folder := ""
		if dir := filepath.Dir(path); filepath.Clean(dir) != filepath.Clean(root) {
			folder = filepath.Base(dir)
		}
		sources = append(sources, Source{Path: path, Metadata: resolveMetadata(path, folder, meta, defaultTag)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return sources, nil
}

func resolveMetadata(path, folder string, meta models.Metadata, defaultTag string) models.Metadata {
	out := meta
	if out.Source == "" {
		out.Source = folder
		if out.Source == "" {
			out.Source = defaultTag
		}
	}
	if out.Title == "" {
		out.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return out
}
