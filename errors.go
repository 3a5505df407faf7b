package nativecall

import (
	"errors"
	"fmt"
)

var (
	// ErrLibraryClosed is returned by calls on a closed library or on
	// callables resolved from it.
	ErrLibraryClosed = errors.New("nativecall: library is closed")
	// ErrNotFunction is returned by VerifySignature when the export is data.
	ErrNotFunction = errors.New("nativecall: export is not a function")
	// ErrSignatureKind is returned when a bound export is requested with a
	// kind other than the one it was declared with.
	ErrSignatureKind = errors.New("nativecall: export declared with a different signature kind")
	// ErrInvalidSignature is returned by SignatureTable.Validate.
	ErrInvalidSignature = errors.New("nativecall: invalid signature table")
)

// LoadError reports a library that could not be opened: missing file, wrong
// platform or architecture, or unresolved link-time dependencies.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("nativecall: load library %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SymbolNotFoundError reports an export absent from a loaded library.
type SymbolNotFoundError struct {
	Library string
	Symbol  string
	Err     error
}

func (e *SymbolNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nativecall: symbol %q not found in %q", e.Symbol, e.Library)
	}
	return fmt.Sprintf("nativecall: symbol %q not found in %q: %v", e.Symbol, e.Library, e.Err)
}

func (e *SymbolNotFoundError) Unwrap() error {
	return e.Err
}
