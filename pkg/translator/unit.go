package translator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hackvm/pkg/vm"
)

// SourceExt is the extension of VM source units.
const SourceExt = ".vm"

// Unit is one source input. Name is its identity: the static namespace of
// everything it declares and the name HasEntryUnit matches against.
type Unit struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileUnit returns a unit that reads path. Its name is the file name
// without the .vm extension.
func FileUnit(path string) Unit {
	name := strings.TrimSuffix(filepath.Base(path), SourceExt)
	return Unit{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", vm.ErrInput, err)
			}
			return f, nil
		},
	}
}

// SourceUnit returns an in-memory unit.
func SourceUnit(name, src string) Unit {
	return Unit{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(src)), nil
		},
	}
}

// HasEntryUnit reports whether a unit is literally named name.
func HasEntryUnit(units []Unit, name string) bool {
	for _, u := range units {
		if u.Name == name {
			return true
		}
	}
	return false
}
