// Package filex places files the client writes to disk.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxVariants bounds how many "name (n).ext" candidates WriteNew tries.
const maxVariants = 1000

// EnsureDir creates name under base and returns its path. An empty base
// means the working directory.
func EnsureDir(base, name string) (string, error) {
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		base = cwd
	}

	dir := filepath.Join(base, name)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeName reduces a name received from the network to a single path
// element. It returns "" when nothing usable is left.
func SafeName(name string) string {
	name = filepath.Base(filepath.Clean(strings.ReplaceAll(name, `\`, "/")))
	switch name {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

// WriteNew writes data to dir/name without replacing an existing file. On a
// clash it tries "name (1).ext", "name (2).ext" and so on. It returns the
// path written.
func WriteNew(dir, name string, data []byte, perm os.FileMode) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxVariants; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", path, err)
		}
		return path, nil
	}

	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}
