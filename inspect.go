package nativecall

import (
	"fmt"

	"github.com/sliverarmory/nativecall/dynlib"
)

// Exports lists the library's exported symbols. Only ELF libraries can be
// inspected.
func (library *Library) Exports() ([]dynlib.Export, error) {
	library.mu.RLock()
	defer library.mu.RUnlock()

	if library.closed || library.handle == nil {
		return nil, ErrLibraryClosed
	}
	exports, err := dynlib.InspectExports(library.handle.Path())
	if err != nil {
		return nil, fmt.Errorf("nativecall: inspect exports: %w", err)
	}
	return exports, nil
}

// VerifySignature checks sig against the library's symbol table: the export
// must exist and be a function. Argument and return widths are not recorded
// in the binary, so the kind itself is still taken on trust.
func (library *Library) VerifySignature(sig Signature) error {
	if err := (SignatureTable{sig}).Validate(); err != nil {
		return err
	}

	exports, err := library.Exports()
	if err != nil {
		return err
	}
	for _, export := range exports {
		if export.Name != sig.Name {
			continue
		}
		if !export.IsFunc {
			return fmt.Errorf("%w: %s", ErrNotFunction, sig.Name)
		}
		return nil
	}
	return &SymbolNotFoundError{Library: library.path, Symbol: sig.Name, Err: dynlib.ErrSymbolNotFound}
}
