package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hackvm/pkg/vm"
)

const (
	SourceExt = ".vm"
	OutputExt = ".asm"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// DiscoverUnits lists the source files named by path. A file must carry the
// .vm extension; a directory yields its .vm files (not recursively) sorted
// by name and must contain at least one.
func DiscoverUnits(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vm.ErrInput, err)
	}

	if !info.IsDir() {
		if filepath.Ext(path) != SourceExt {
			return nil, fmt.Errorf("%w: %s is not a %s file", vm.ErrInput, path, SourceExt)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vm.ErrInput, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != SourceExt {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", vm.ErrInput, SourceExt, path)
	}
	sort.Strings(files)
	return files, nil
}

// OutputPath returns where the translation of path goes: X.vm becomes X.asm
// beside it, and directory D becomes D/<base of D>.asm.
func OutputPath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		clean := filepath.Clean(path)
		base := filepath.Base(clean)
		if abs, err := filepath.Abs(clean); err == nil {
			base = filepath.Base(abs)
		}
		return filepath.Join(clean, base+OutputExt)
	}
	return ReplaceExt(path, OutputExt)
}

// ReplaceExt swaps the extension of path for ext.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
