// Package nativecall calls exports of a native shared library that produce
// or consume a single unsigned 64-bit integer.
//
// Every callable is bound with a fixed Go type: a Producer is
// uint64_t f(void) and a Consumer is void f(uint64_t). The loader cannot
// see the real native signature, so the declared kind must match it exactly.
// A mismatch is undefined behaviour (a crash, memory corruption or a silently
// wrong value), never a returned error. VerifySignature can at least confirm
// that an export exists and is a function on ELF platforms.
package nativecall

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sliverarmory/nativecall/dynlib"
)

const imagePath = "<memory>"

type Library struct {
	mu     sync.RWMutex
	handle *dynlib.Handle
	path   string
	closed bool
}

// Load opens the shared library at path.
func Load(path string) (*Library, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &LoadError{Path: path, Err: errors.New("empty library path")}
	}

	handle, err := dynlib.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &Library{handle: handle, path: path}, nil
}

// LoadImage loads a shared library image from memory.
func LoadImage(data []byte) (*Library, error) {
	if len(data) == 0 {
		return nil, &LoadError{Path: imagePath, Err: errors.New("empty library image")}
	}

	handle, err := dynlib.OpenImage(data)
	if err != nil {
		return nil, &LoadError{Path: imagePath, Err: err}
	}
	return &Library{handle: handle, path: imagePath}, nil
}

// LoadFile reads a shared library from disk and loads it from memory.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read library file: %w", err)}
	}

	library, err := LoadImage(data)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}
	library.path = path
	return library, nil
}

// Path returns the path the library was loaded from.
func (library *Library) Path() string {
	return library.path
}

// Close releases the library. Callables resolved from it fail with
// ErrLibraryClosed afterwards.
func (library *Library) Close() error {
	library.mu.Lock()
	defer library.mu.Unlock()

	if library.closed {
		return nil
	}
	library.closed = true

	if library.handle != nil {
		err := library.handle.Close()
		library.handle = nil
		if err != nil {
			return fmt.Errorf("nativecall: close library: %w", err)
		}
	}
	return nil
}

func (library *Library) symbol(name string) (uintptr, error) {
	library.mu.RLock()
	defer library.mu.RUnlock()

	if library.closed || library.handle == nil {
		return 0, ErrLibraryClosed
	}
	addr, err := library.handle.Symbol(name)
	if err != nil {
		return 0, &SymbolNotFoundError{Library: library.path, Symbol: name, Err: err}
	}
	return addr, nil
}
