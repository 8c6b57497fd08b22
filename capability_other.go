//go:build !unix

package recdb

import "os"

// lockWrite is a no-op on platforms without flock semantics (Windows,
// js/wasm, plan9). The single-writer contract remains documented but
// unenforced there.
func lockWrite(f *os.File) error {
	return nil
}

func lockUnlock(f *os.File) error {
	return nil
}
