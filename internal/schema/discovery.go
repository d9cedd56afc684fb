package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// Discover walks rootDir and returns every .graphql file as a source, ordered
// by path. Source names are relative to rootDir.
func Discover(rootDir string) ([]*ast.Source, error) {
	var paths []string
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".graphql" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	sort.Strings(paths)

	sources := make([]*ast.Source, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return nil, fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}
		sources = append(sources, &ast.Source{Name: rel, Input: string(content)})
	}
	return sources, nil
}
