package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// DirectoryDefinitionSource loads every *.json file of a directory in lexical order.
type DirectoryDefinitionSource struct {
	dir      string
	validate bool
}

func NewDirectoryDefinitionSource(dir string, validate bool) *DirectoryDefinitionSource {
	return &DirectoryDefinitionSource{dir: dir, validate: validate}
}

func (s *DirectoryDefinitionSource) Name() string { return "dir:" + s.dir }

func (s *DirectoryDefinitionSource) Load(ctx context.Context) ([]*resultmap.DefinitionDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resultmap.NewNotFoundError("definition directory", s.dir).WithCause(err)
		}
		return nil, fmt.Errorf("failed to read definition directory %s: %w", s.dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	docs := make([]*resultmap.DefinitionDocument, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
		}
		doc, err := ParseDefinitionDocument(path, data, s.validate)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	zap.S().Infow("loaded definition documents", "source", s.Name(), "documents", len(docs))
	return docs, nil
}

// StaticDefinitionSource serves documents held in memory.
type StaticDefinitionSource struct {
	name string
	docs []*resultmap.DefinitionDocument
}

func NewStaticDefinitionSource(name string, docs ...*resultmap.DefinitionDocument) *StaticDefinitionSource {
	return &StaticDefinitionSource{name: name, docs: docs}
}

func (s *StaticDefinitionSource) Name() string { return "static:" + s.name }

func (s *StaticDefinitionSource) Load(ctx context.Context) ([]*resultmap.DefinitionDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*resultmap.DefinitionDocument(nil), s.docs...), nil
}
