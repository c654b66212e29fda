package snmp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindExtractsThroughWrap(t *testing.T) {
	base := wrapKind(ErrTimeout, "request %d timed out", 7)
	wrapped := errors.Wrap(base, "session.execute")
	assert.Equal(t, ErrTimeout, Kind(wrapped))
	assert.True(t, Is(wrapped, ErrTimeout))
	assert.False(t, Is(wrapped, ErrDecodeFailed))
}

func TestKindUntaggedErrorIsEmpty(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Kind(errors.New("plain")))
}

func TestWrapErrNilIsNil(t *testing.T) {
	assert.Nil(t, wrapErr(ErrDecodeFailed, nil, "decode"))
}

func TestKindErrorMessage(t *testing.T) {
	err := wrapKind(ErrInvalidOID, "oid %q", "1.a.2")
	assert.Contains(t, err.Error(), "invalid_oid")
}
