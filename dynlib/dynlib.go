// Package dynlib opens native shared libraries and resolves their exports.
//
// It is the platform layer under package nativecall: dlopen/dlsym/dlclose on
// linux and darwin, LoadLibrary/GetProcAddress/FreeLibrary on windows. A
// resolved address carries no type information; Bind attaches a Go function
// type to it.
package dynlib

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrSymbolNotFound is wrapped by Symbol when the export is absent.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUnsupported is returned on platforms without a loader.
	ErrUnsupported = errors.New("dynlib is only supported on linux, darwin and windows (amd64, arm64)")
	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("library is closed")
)

// Handle is an open native library.
type Handle struct {
	mu      sync.RWMutex
	handle  uintptr
	path    string
	release func() error
	closed  bool
}

// Open loads the shared library at path with all symbols bound immediately,
// so unresolved dependencies fail here rather than at first call.
func Open(path string) (*Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("library path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return nil, errors.New("library path contains NUL")
	}

	handle, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	return &Handle{handle: handle, path: path}, nil
}

// Path returns the filesystem path the library was opened from. For images
// this is the anonymous file backing the mapping.
func (h *Handle) Path() string {
	return h.path
}

// Symbol returns the address of the named export. The name is used as
// given: surrounding whitespace is never part of a symbol, so a padded name
// is reported as not found.
func (h *Handle) Symbol(name string) (uintptr, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: export name cannot be empty", ErrSymbolNotFound)
	}
	if name != strings.TrimSpace(name) {
		return 0, fmt.Errorf("%w: export name %q has surrounding whitespace", ErrSymbolNotFound, name)
	}
	if strings.ContainsRune(name, '\x00') {
		return 0, fmt.Errorf("%w: export name contains NUL", ErrSymbolNotFound)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return 0, ErrClosed
	}

	addr, err := lookupSymbol(h.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrSymbolNotFound, name, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s: symbol address is nil", ErrSymbolNotFound, name)
	}
	return addr, nil
}

// Close unloads the library and releases any backing file. It is safe to
// call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	if h.handle != 0 {
		if err := closeLibrary(h.handle); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h.path, err))
		}
		h.handle = 0
	}
	if h.release != nil {
		if err := h.release(); err != nil {
			errs = append(errs, err)
		}
		h.release = nil
	}
	return errors.Join(errs...)
}
