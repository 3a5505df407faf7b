//go:build !((darwin || linux || windows) && (amd64 || arm64))

package dynlib

func openLibrary(path string) (uintptr, error) {
	_ = path
	return 0, ErrUnsupported
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	_, _ = handle, name
	return 0, ErrUnsupported
}

func closeLibrary(handle uintptr) error {
	_ = handle
	return ErrUnsupported
}

// OpenImage is not available on this platform.
func OpenImage(data []byte) (*Handle, error) {
	_ = data
	return nil, ErrUnsupported
}

// Bind is not available on this platform.
func Bind(fptr any, addr uintptr) {
	_, _ = fptr, addr
	panic(ErrUnsupported)
}
