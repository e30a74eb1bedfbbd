package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/fsutil"
)

// FileLoader parses one file format into a Model.
type FileLoader interface {
	// Extensions lists the file extensions handled, including the dot.
	Extensions() []string
	LoadFile(ctx context.Context, path string) (*Model, error)
}

// Loader walks paths and hands each file to the FileLoader registered for
// its extension.
type Loader struct {
	byExt map[string]FileLoader
}

// NewLoader creates a Loader. A later FileLoader wins an extension clash.
func NewLoader(loaders ...FileLoader) *Loader {
	l := &Loader{byExt: make(map[string]FileLoader)}
	for _, fl := range loaders {
		for _, ext := range fl.Extensions() {
			l.byExt[ext] = fl
		}
	}
	return l
}

// Extensions returns the supported extensions, sorted.
func (l *Loader) Extensions() []string {
	exts := make([]string, 0, len(l.byExt))
	for ext := range l.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads every supported file under paths and merges the result. Paths
// that do not exist are skipped; an explicitly named file with an unknown
// extension is an error. The merged model is validated before it is returned.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Config loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered config files.", "count", len(files))

	model := &Model{}
	for _, file := range files {
		fl := l.byExt[filepath.Ext(file)]
		m, err := fl.LoadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}

	if err := Validate(model); err != nil {
		return nil, err
	}
	logger.Debug("Config loading complete.", "seeds", len(model.Seeds), "bounds", len(model.Bounds), "certificates", len(model.Certificates))
	return model, nil
}

func (l *Loader) findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	exts := l.Extensions()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if _, ok := l.byExt[filepath.Ext(path)]; !ok {
				return nil, fmt.Errorf("unsupported config file %s: extension must be one of %v", path, exts)
			}
		}

		files, err := fsutil.FindFilesByExtension(path, exts...)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}
