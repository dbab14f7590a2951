package frontmatter

import (
	"os"
	"path/filepath"

	"github.com/teranos/emile/errors"
)

// ReadFile parses the post at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, "read %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// WriteFile writes the document to path atomically.
func (d *Document) WriteFile(path string) error {
	return WriteAtomic(path, d.Bytes())
}

// WriteAtomic writes data to a temporary file next to path, syncs it and
// renames it over path, so readers see either the old or the new content.
// An existing file's permissions are kept.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.WrapIO(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.WrapIO(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.WrapIO(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return errors.WrapIO(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.WrapIO(err, "rename %s to %s", tmpName, path)
	}
	return nil
}
