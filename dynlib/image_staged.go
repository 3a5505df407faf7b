//go:build (darwin || windows) && (amd64 || arm64)

package dynlib

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// OpenImage loads a shared library from memory by staging it in a private
// temporary file, which is removed again on Close.
func OpenImage(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, errors.New("empty library image")
	}

	pattern := "nativecall-*.dylib"
	if runtime.GOOS == "windows" {
		pattern = "nativecall-*.dll"
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create staged library: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write staged library %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close staged library %s: %w", path, err)
	}

	handle, err := openLibrary(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Handle{
		handle: handle,
		path:   path,
		release: func() error {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove staged library %s: %w", path, err)
			}
			return nil
		},
	}, nil
}
