//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package raw

// Mmap is unavailable on this platform.
type Mmap struct{}

// NewMmap reports ErrUnsupported outside unix builds.
func NewMmap() (*Mmap, error) {
	return nil, ErrUnsupported
}

// Reserve implements Provider.
func (m *Mmap) Reserve(int, int) (Addr, []byte, error) {
	return 0, nil, ErrUnsupported
}

// Release implements Provider.
func (m *Mmap) Release(Addr, int, int) error {
	return ErrUnsupported
}

// Live always returns 0.
func (m *Mmap) Live() int {
	return 0
}
