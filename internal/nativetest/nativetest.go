// Package nativetest builds the native stub libraries used by tests.
package nativetest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Stub exports, see testdata/c/u64.c.
const (
	GetUint64        = "get_uint64"
	GetMaxUint64     = "get_max_uint64"
	GetHighBitUint64 = "get_high_bit_uint64"
	PrintUint64      = "print_uint64"
	LastUint64       = "last_uint64"
	PrintCalls       = "print_calls"
	ExportedCounter  = "exported_counter"

	// StubValue is what GetUint64 returns.
	StubValue uint64 = 42
)

// SharedLibExt returns the shared library extension for goos.
func SharedLibExt(goos string) (string, error) {
	switch goos {
	case "darwin":
		return "dylib", nil
	case "linux":
		return "so", nil
	case "windows":
		return "dll", nil
	default:
		return "", fmt.Errorf("unsupported target os: %s", goos)
	}
}

// ZigTarget maps a GOOS/GOARCH pair to a zig cc target triple.
func ZigTarget(goos string, goarch string) (string, bool) {
	switch {
	case goos == "darwin" && goarch == "amd64":
		return "x86_64-macos", true
	case goos == "darwin" && goarch == "arm64":
		return "aarch64-macos", true
	case goos == "linux" && goarch == "amd64":
		return "x86_64-linux-gnu", true
	case goos == "linux" && goarch == "arm64":
		return "aarch64-linux-gnu", true
	case goos == "windows" && goarch == "amd64":
		return "x86_64-windows-gnu", true
	case goos == "windows" && goarch == "arm64":
		return "aarch64-windows-gnu", true
	default:
		return "", false
	}
}

// MissingDepSource returns the path of a stub that calls an undefined
// function, relative to a package directory depth levels below the module
// root.
func MissingDepSource(depth int) string {
	return filepath.Join(filepath.Dir(StubSource(depth)), "missing_dep.c")
}

// AllowUndefinedFlags lets the linker emit a shared object with unresolved
// symbols, so the failure moves to load time.
var AllowUndefinedFlags = []string{"-Wl,-z,undefs"}

// ELFHeader returns a little-endian ELF64 image consisting of a bare file
// header for machine and typ, with no sections or program headers.
func ELFHeader(machine elf.Machine, typ elf.Type) []byte {
	hdr := elf.Header64{
		Type:      uint16(typ),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &hdr)
	return buf.Bytes()
}

// StubSource returns the path of the C stub relative to a package directory
// depth levels below the module root.
func StubSource(depth int) string {
	parts := make([]string, 0, depth+3)
	for i := 0; i < depth; i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, "testdata", "c", "u64.c")
	return filepath.Join(parts...)
}

// BuildStub compiles source into a shared library for the host platform
// inside a test temp dir, passing extra to the compiler. It prefers zig cc
// and falls back to the system C compiler; the test is skipped when neither
// is available.
func BuildStub(t testing.TB, source string, extra ...string) string {
	t.Helper()

	ext, err := SharedLibExt(runtime.GOOS)
	if err != nil {
		t.Skipf("native stub: %v", err)
	}
	output := filepath.Join(t.TempDir(), fmt.Sprintf("u64_%s-%s.%s", runtime.GOOS, runtime.GOARCH, ext))

	if _, err := exec.LookPath("zig"); err == nil {
		if target, ok := ZigTarget(runtime.GOOS, runtime.GOARCH); ok {
			args := append([]string{"cc", "-target", target}, sharedFlags(runtime.GOOS)...)
			args = append(args, extra...)
			args = append(args, "-O2", "-g0", "-o", output, source)
			cmd := exec.Command("zig", args...)
			cmd.Env = append(
				os.Environ(),
				"ZIG_GLOBAL_CACHE_DIR="+filepath.Join(os.TempDir(), "nativecall-zig-global-cache"),
				"ZIG_LOCAL_CACHE_DIR="+filepath.Join(os.TempDir(), "nativecall-zig-local-cache"),
			)
			out, err := cmd.CombinedOutput()
			if err == nil {
				cleanupSidecars(output, ext)
				return output
			}
			t.Logf("zig cc failed for %s/%s, retrying with system compiler: %v\n%s", runtime.GOOS, runtime.GOARCH, err, out)
		}
	}

	cc := systemCompiler()
	if cc == "" {
		t.Skip("no C compiler (zig, cc, gcc, clang) found in PATH")
	}
	args := append(sharedFlags(runtime.GOOS), extra...)
	args = append(args, "-O2", "-o", output, source)
	out, err := exec.Command(cc, args...).CombinedOutput()
	if err != nil {
		t.Fatalf("build native stub with %s: %v\n%s", cc, err, out)
	}
	cleanupSidecars(output, ext)
	return output
}

func sharedFlags(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"-dynamiclib", "-fPIC"}
	case "windows":
		return []string{"-shared"}
	default:
		return []string{"-shared", "-fPIC"}
	}
}

func systemCompiler() string {
	if cc := os.Getenv("CC"); cc != "" && !strings.ContainsAny(cc, " \t") {
		if path, err := exec.LookPath(cc); err == nil {
			return path
		}
	}
	for _, name := range []string{"cc", "gcc", "clang"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// Zig and mingw emit COFF sidecars for windows builds.
func cleanupSidecars(output string, ext string) {
	if ext != "dll" {
		return
	}
	base := strings.TrimSuffix(output, "."+ext)
	_ = os.Remove(base + ".pdb")
	_ = os.Remove(base + ".lib")
	_ = os.Remove(base + ".exp")
}
