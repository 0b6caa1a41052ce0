//go:build linux || darwin || freebsd || netbsd || openbsd

package raw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMmapReserveRelease(t *testing.T) {
	m, err := NewMmap()
	require.NoError(t, err)

	addr, b, err := m.Reserve(100, 8)
	require.NoError(t, err)
	require.Len(t, b, 100)
	require.Equal(t, 1, m.Live())

	// Mapping must be writable.
	for i := range b {
		b[i] = byte(i)
	}
	require.Equal(t, byte(99), b[99])

	require.NoError(t, m.Release(addr, 100, 8))
	require.Zero(t, m.Live())
	require.ErrorIs(t, m.Release(addr, 100, 8), ErrUnknownAddress)
}

func TestMmapLargeAlignment(t *testing.T) {
	m, err := NewMmap()
	require.NoError(t, err)

	align := 4 * m.pageSize
	addr, b, err := m.Reserve(10, align)
	require.NoError(t, err)
	require.Zero(t, uintptr(addr)%uintptr(align))
	require.Equal(t, addr, AddrOf(b))
	require.NoError(t, m.Release(addr, 10, align))
}

func TestMmapRejectsBadAlignment(t *testing.T) {
	m, err := NewMmap()
	require.NoError(t, err)
	_, _, err = m.Reserve(10, 3)
	require.ErrorIs(t, err, ErrBadAlignment)
}
