package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliverarmory/nativecall"
	"github.com/sliverarmory/nativecall/internal/nativetest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func nativeSupported() bool {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
	default:
		return false
	}
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

func buildStub(t *testing.T) string {
	t.Helper()
	if !nativeSupported() {
		t.Skipf("native loading unsupported on %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	return nativetest.BuildStub(t, nativetest.StubSource(1))
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nativecall [shared library]", cmd.Use)

	for _, name := range []string{"signatures", "exports"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	value := cmd.Flags().Lookup("value")
	require.NotNil(t, value)
	assert.Equal(t, "18446744073709551615", value.DefValue)

	getSymbol := cmd.PersistentFlags().Lookup("get-symbol")
	require.NotNil(t, getSymbol)
	assert.Equal(t, nativecall.DefaultProducer, getSymbol.DefValue)
}

func TestSignaturesGolden(t *testing.T) {
	g := goldie.New(t)

	out, _, err := execute(t, "signatures")
	require.NoError(t, err)
	g.Assert(t, "signatures_text", []byte(out))

	out, _, err = execute(t, "signatures", "--format", "json")
	require.NoError(t, err)
	g.Assert(t, "signatures_json", []byte(out))
}

func TestSignaturesRejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "signatures", "--format", "yaml")
	assert.Error(t, err)
}

func TestRunPrintsProducerValue(t *testing.T) {
	path := buildStub(t)

	out, _, err := execute(t, path)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestRunWithAlternateSymbols(t *testing.T) {
	path := buildStub(t)

	out, _, err := execute(t, path, "--get-symbol", nativetest.GetMaxUint64, "--value", "0")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615\n", out)
}

func TestRunFromMemory(t *testing.T) {
	path := buildStub(t)

	out, _, err := execute(t, path, "--from-memory")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestRunDebugLogging(t *testing.T) {
	path := buildStub(t)

	out, stderr, err := execute(t, path, "--log-level", "debug", "--log-format", "json")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
	assert.Contains(t, stderr, `"msg":"called producer"`)
	assert.Contains(t, stderr, `"value":18446744073709551615`)
}

func TestRunFromConfigFile(t *testing.T) {
	path := buildStub(t)

	cfgPath := filepath.Join(t.TempDir(), "nativecall.yaml")
	content := "library: " + filepath.ToSlash(path) + "\nsymbols:\n  get: " + nativetest.GetHighBitUint64 + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	out, _, err := execute(t, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775808\n", out)
}

func TestRunMissingLibrary(t *testing.T) {
	if !nativeSupported() {
		t.Skip("native loading unsupported")
	}

	_, _, err := execute(t, filepath.Join(t.TempDir(), "libmissing.so"))
	var loadErr *nativecall.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestRunMissingSymbol(t *testing.T) {
	path := buildStub(t)

	_, _, err := execute(t, path, "--print-symbol", "print_uint128")
	var symErr *nativecall.SymbolNotFoundError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "print_uint128", symErr.Symbol)
}

func TestRunRequiresLibrary(t *testing.T) {
	_, _, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no shared library")
}

func TestRunRejectsBadValue(t *testing.T) {
	_, _, err := execute(t, "./libfoo.so", "--value", "-1")
	assert.Error(t, err)
}
