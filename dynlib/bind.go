//go:build (darwin || linux || windows) && (amd64 || arm64)

package dynlib

import "github.com/ebitengine/purego"

// Bind points fptr, a pointer to a Go func variable, at the native function
// at addr. The Go type is the only signature the call will use: it must match
// the native declaration exactly in argument count, widths and return width,
// otherwise the call is undefined behaviour. Bind panics if fptr is not a
// pointer to a func with register-passable parameters.
func Bind(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
