//go:build (darwin || linux) && (amd64 || arm64)

package nativecall_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliverarmory/nativecall"
)

func TestLoadGoSharedLibAndRoundTrip(t *testing.T) {
	requireCommand(t, "go")

	soPath := buildGoSharedLib(t, t.TempDir(), runtime.GOOS, runtime.GOARCH)

	lib, err := nativecall.Load(soPath)
	require.NoError(t, err, "Load(%s)", soPath)

	// Intentionally do not unload the Go c-shared module in-test. Unmapping
	// it while runtime-managed state is still live can crash the process.

	bindings, err := lib.Bind(nativecall.SignatureTable{
		{Name: nativecall.DefaultProducer, Kind: nativecall.KindReturnsU64},
		{Name: nativecall.DefaultConsumer, Kind: nativecall.KindTakesU64},
		{Name: "last_uint64", Kind: nativecall.KindReturnsU64},
	})
	require.NoError(t, err)

	getUint64, err := bindings.Producer(nativecall.DefaultProducer)
	require.NoError(t, err)
	got, err := getUint64.Call()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	printUint64, err := bindings.Consumer(nativecall.DefaultConsumer)
	require.NoError(t, err)
	last, err := bindings.Producer("last_uint64")
	require.NoError(t, err)

	require.NoError(t, printUint64.Call(18446744073709551615))
	observed, err := last.Call()
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), observed)
}
