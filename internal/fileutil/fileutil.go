package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Written describes a file produced by WriteStream.
type Written struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// WriteStream copies r into dst through a temporary file in the same
// directory and renames it into place, so readers never observe a partial
// file. Missing parent directories are created.
func WriteStream(dst string, r io.Reader, mode os.FileMode) (Written, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Written{}, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return Written{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		return Written{}, err
	}
	if err := tmp.Chmod(mode); err != nil {
		return Written{}, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Written{}, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return Written{}, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return Written{Path: dst, Bytes: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}
