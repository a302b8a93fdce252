// Package meshio reads and writes triangle meshes as STL (ASCII or binary)
// and Wavefront OBJ files. Writes are atomic: output goes to a temporary
// file in the destination directory and is renamed into place only after
// it has been written completely.
package meshio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/meshbool/pkg/kernel"
)

var (
	// ErrNotFound is returned when an input path does not exist.
	ErrNotFound = errors.New("input file not found")
	// ErrUnreadable is returned when an input exists but cannot be parsed.
	ErrUnreadable = errors.New("input file unreadable")
	// ErrWrite is returned when an output cannot be written.
	ErrWrite = errors.New("export failed")
	// ErrUnknownFormat is returned for an unrecognized format name.
	ErrUnknownFormat = errors.New("unknown mesh format")
)

// Format names an on-disk mesh encoding.
type Format string

const (
	FormatAuto      Format = ""
	FormatSTL       Format = "stl"
	FormatBinarySTL Format = "stl-binary"
	FormatOBJ       Format = "obj"
)

// ParseFormat resolves a format name. The empty string selects the format
// from the file extension at write time.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatSTL, FormatBinarySTL, FormatOBJ:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q (known: stl, stl-binary, obj)", ErrUnknownFormat, s)
	}
}

// formatFor picks the encoding for path: an explicit format wins, then
// the extension, then ASCII STL.
func formatFor(path string, f Format) Format {
	if f != FormatAuto {
		return f
	}
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		return FormatOBJ
	}
	return FormatSTL
}

// Load reads the mesh at path, choosing the parser from the extension.
// The mesh is named after the file.
func Load(path string) (kernel.Mesh, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return kernel.Mesh{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	case err != nil:
		return kernel.Mesh{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	case info.IsDir():
		return kernel.Mesh{}, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}

	var m kernel.Mesh
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		m, err = loadOBJ(path)
	} else {
		m, err = LoadSTL(path)
	}
	if err != nil {
		return kernel.Mesh{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	if m.IsEmpty() {
		return kernel.Mesh{}, fmt.Errorf("%w: %s: no triangles", ErrUnreadable, path)
	}
	if err := m.CheckStructure(); err != nil {
		return kernel.Mesh{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	base := filepath.Base(path)
	return m.WithName(strings.TrimSuffix(base, filepath.Ext(base))), nil
}

func loadOBJ(path string) (kernel.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return kernel.Mesh{}, err
	}
	defer f.Close()
	return ReadOBJ(f)
}

// Save writes m to path in format f. Nothing is left at path unless the
// whole mesh was written.
func Save(path string, m kernel.Mesh, f Format) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", ErrWrite)
	}
	var write func(tmp string) error
	switch formatFor(path, f) {
	case FormatSTL:
		write = func(tmp string) error { return writeFile(tmp, m, WriteSTL) }
	case FormatOBJ:
		write = func(tmp string) error { return writeFile(tmp, m, WriteOBJ) }
	case FormatBinarySTL:
		write = func(tmp string) error { return writeBinarySTL(tmp, m) }
	default:
		return fmt.Errorf("%w: %w %q", ErrWrite, ErrUnknownFormat, f)
	}
	if err := writeAtomic(path, write); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

// Files loads and saves meshes on the local file system.
type Files struct {
	Format Format
}

// Load reads a mesh from path.
func (Files) Load(path string) (kernel.Mesh, error) { return Load(path) }

// Export writes m to path.
func (f Files) Export(path string, m kernel.Mesh) error { return Save(path, m, f.Format) }

// writeAtomic runs write against a temporary sibling of path and renames
// it over path when write succeeds. The temporary file is removed on any
// failure.
func writeAtomic(path string, write func(tmp string) error) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
