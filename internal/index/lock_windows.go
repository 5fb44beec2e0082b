//go:build windows

package index

// Lock is a no-op on Windows: concurrent builders are not detected there.
func Lock(string) (func(), error) {
	return func() {}, nil
}
