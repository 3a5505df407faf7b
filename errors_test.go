package nativecall

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadErrorUnwrap(t *testing.T) {
	cause := errors.New("cannot open shared object file")
	err := error(&LoadError{Path: "./libfoo.so", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "./libfoo.so")
	assert.Contains(t, err.Error(), "cannot open shared object file")
}

func TestSymbolNotFoundErrorMessage(t *testing.T) {
	err := &SymbolNotFoundError{Library: "./libfoo.so", Symbol: "get_uint64"}
	assert.Equal(t, `nativecall: symbol "get_uint64" not found in "./libfoo.so"`, err.Error())

	cause := errors.New("undefined symbol: get_uint64")
	err.Err = cause
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "undefined symbol")
}
