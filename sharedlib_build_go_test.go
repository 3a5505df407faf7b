package nativecall_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sliverarmory/nativecall/internal/nativetest"
)

func buildGoSharedLib(t *testing.T, outDir string, goos string, goarch string) string {
	t.Helper()

	ext, err := nativetest.SharedLibExt(goos)
	if err != nil {
		t.Fatalf("build go shared library target=%s/%s: %v", goos, goarch, err)
	}

	outputPath := filepath.Join(outDir, fmt.Sprintf("u64_go_%s-%s.%s", goos, goarch, ext))
	args := []string{
		"build",
		"-buildmode=c-shared",
		"-trimpath",
		"-o", outputPath,
		"./testdata/go/u64",
	}

	baseEnv := overrideEnv(os.Environ(), map[string]string{
		"GOOS":        goos,
		"GOARCH":      goarch,
		"CGO_ENABLED": "1",
		"GOCACHE":     filepath.Join(os.TempDir(), "nativecall-go-build-cache"),
	})

	if _, err := exec.LookPath("zig"); err == nil {
		cc, cxx := "zig cc", "zig c++"
		if target, ok := nativetest.ZigTarget(goos, goarch); ok {
			cc = "zig cc -target " + target
			cxx = "zig c++ -target " + target
		}
		cmd := exec.Command("go", args...)
		cmd.Env = overrideEnv(baseEnv, map[string]string{
			"CC":  cc,
			"CXX": cxx,
		})
		out, err := cmd.CombinedOutput()
		if err == nil {
			cleanupGoSharedSidecars(outputPath, ext)
			return outputPath
		}
		t.Logf("go build with zig cc failed for %s/%s, retrying with default compiler: %v\n%s", goos, goarch, err, out)
	}

	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("no C compiler for cgo found in PATH")
	}
	cmd := exec.Command("go", args...)
	cmd.Env = baseEnv
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build go shared lib target=%s/%s: %v\n%s", goos, goarch, err, out)
	}

	cleanupGoSharedSidecars(outputPath, ext)
	return outputPath
}

func cleanupGoSharedSidecars(outputPath string, ext string) {
	base := strings.TrimSuffix(outputPath, "."+ext)
	_ = os.Remove(base + ".h")
	if ext == "dll" {
		_ = os.Remove(base + ".lib")
		_ = os.Remove(base + ".exp")
		_ = os.Remove(base + ".pdb")
	}
}

func overrideEnv(base []string, overrides map[string]string) []string {
	block := make(map[string]struct{}, len(overrides))
	for key := range overrides {
		block[key] = struct{}{}
	}

	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		if _, drop := block[kv[:eq]]; drop {
			continue
		}
		out = append(out, kv)
	}

	for key, value := range overrides {
		out = append(out, key+"="+value)
	}
	return out
}
