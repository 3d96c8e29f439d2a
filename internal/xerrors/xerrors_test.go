package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalUnwrapsAndReportsKind(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := NewFatal(Connect, base)

	require.ErrorIs(t, err, base)

	var fatal *Fatal
	require.True(t, errors.As(err, &fatal))
	require.Equal(t, Connect, fatal.Kind)
}

func TestProtocolViolationIsNotFatal(t *testing.T) {
	err := NewProtocolViolation(3, "OK received in READY")

	var fatal *Fatal
	require.False(t, errors.As(err, &fatal))
	require.Contains(t, err.Error(), "worker 3")
}
