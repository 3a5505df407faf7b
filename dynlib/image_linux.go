//go:build linux && (amd64 || arm64)

package dynlib

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// OpenImage loads a shared library from memory. The image is written to an
// anonymous memfd and opened through /proc/self/fd, so nothing is left on
// disk. The fd stays open until Close.
func OpenImage(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, errors.New("empty ELF image")
	}
	if err := ValidateELF(data); err != nil {
		return nil, err
	}

	fd, err := unix.MemfdCreate("nativecall", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("create anonymous shared object fd: %w", err)
	}
	written := 0
	for written < len(data) {
		n, err := unix.Write(fd, data[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			_ = unix.Close(fd)
			return nil, fmt.Errorf("write anonymous shared object: %w", err)
		}
		if n <= 0 {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("write anonymous shared object: short write (%d/%d)", written, len(data))
		}
		written += n
	}

	path := fmt.Sprintf("/proc/self/fd/%d", fd)
	handle, err := openLibrary(path)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Handle{
		handle: handle,
		path:   path,
		release: func() error {
			return unix.Close(fd)
		},
	}, nil
}
