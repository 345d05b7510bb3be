package herrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatError_IsErrFormat(t *testing.T) {
	cause := errors.New("bad signature")
	err := FormatError("superblock read", cause)

	require.ErrorIs(t, err, ErrFormat)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrIO)
	require.Equal(t, "superblock read: bad signature", err.Error())
}

func TestUnsupportedFeature_NilCause(t *testing.T) {
	err := UnsupportedFeature("szip filter", nil)

	require.ErrorIs(t, err, ErrUnsupported)
	require.Equal(t, "szip filter", err.Error())
}

func TestIoFailure_IsErrIO(t *testing.T) {
	cause := errors.New("connection reset")
	err := IoFailure("range GET", cause)

	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, cause)
}

func TestHypersliceError_IsErrHyperslice(t *testing.T) {
	cause := errors.New("hi < lo")
	err := HypersliceError("hyperslab selection", cause)

	require.ErrorIs(t, err, ErrHyperslice)
	require.ErrorIs(t, err, cause)
}

func TestTaxonomyClassesAreDistinct(t *testing.T) {
	err := FormatError("ctx", errors.New("x"))

	require.False(t, errors.Is(err, ErrUnsupported))
	require.False(t, errors.Is(err, ErrIO))
	require.False(t, errors.Is(err, ErrHyperslice))
	require.False(t, errors.Is(err, ErrPending))
}
