package emit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
)

// File is one rendered output.
type File struct {
	Path    string
	Content []byte
}

// Write stages every file next to its destination, in order, and stops at
// the first failure with all staged files removed. Only once every file is
// staged are they renamed into place.
func Write(files ...File) error {
	staged := make([]string, 0, len(files))
	discard := func(from int) {
		for _, p := range staged[from:] {
			_ = os.Remove(p)
		}
	}

	for _, f := range files {
		tmp, err := stage(f)
		if err != nil {
			discard(0)
			return generror.WriteFailure(f.Path, err)
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], f.Path); err != nil {
			discard(i)
			return generror.WriteFailure(f.Path, fmt.Errorf("rename staged file: %w", err))
		}
	}
	return nil
}

func stage(f File) (string, error) {
	if info, err := os.Stat(f.Path); err == nil && info.IsDir() {
		return "", errors.New("destination is a directory")
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := tmp.Write(f.Content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close staged file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod staged file: %w", err)
	}
	return tmp.Name(), nil
}
