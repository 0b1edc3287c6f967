// Package filex holds local media file helpers used by the record service
// when a note carries a photo/audio/video attachment waiting for upload.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates (if needed) and returns an application subdirectory
// below the current working directory.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// CopyIntoDir copies src into dir keeping the base name and returns the
// destination path. Used to move a captured media file under the app's
// media directory before it is referenced by a pending record.
func CopyIntoDir(src, dir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src, err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dst, data, 0o660); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}
