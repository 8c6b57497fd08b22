package recdb

import (
	"io"
	"os"
)

// FileCapability is the narrow surface the stream cache needs from a
// backing file: reads that report the true byte count, arbitrary-length
// writes, absolute seeking, truncation and closing. It exists so the cache never depends on *os.File
// directly, keeping the storage/transport split between the capability
// and its concrete filesystem-backed implementation.
type FileCapability interface {
	// Read behaves like io.Reader: a short read near EOF returns the
	// bytes available with a nil error, and only a zero-byte read
	// returns io.EOF. The stream cache relies on this true-byte-count
	// behavior rather than inferring EOF from an all-zero buffer.
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	SeekAbsolute(pos int64) (int64, error)
	StreamPosition() (int64, error)
	SetLen(size int64) error
	Close() error
}

// osFile adapts *os.File to FileCapability.
type osFile struct {
	f      *os.File
	locked bool
}

func openOSFile(path string, flag int, perm os.FileMode, lock bool) (*osFile, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, ioErr("open", err)
	}
	locked := false
	if lock && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		if err := lockWrite(f); err != nil {
			f.Close()
			return nil, err
		}
		locked = true
	}
	return &osFile{f: f, locked: locked}, nil
}

func (o *osFile) Read(buf []byte) (int, error) {
	n, err := o.f.Read(buf)
	if err != nil {
		if err == io.EOF {
			return n, io.EOF
		}
		return n, ioErr("read", err)
	}
	return n, nil
}

func (o *osFile) Write(buf []byte) (int, error) {
	n, err := o.f.Write(buf)
	if err != nil {
		return n, ioErr("write", err)
	}
	return n, nil
}

func (o *osFile) SeekAbsolute(pos int64) (int64, error) {
	n, err := o.f.Seek(pos, io.SeekStart)
	if err != nil {
		return n, ioErr("seek", err)
	}
	return n, nil
}

func (o *osFile) StreamPosition() (int64, error) {
	n, err := o.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return n, ioErr("tell", err)
	}
	return n, nil
}

func (o *osFile) SetLen(size int64) error {
	if err := o.f.Truncate(size); err != nil {
		return ioErr("truncate", err)
	}
	return nil
}

func (o *osFile) Close() error {
	if o.locked {
		if err := lockUnlock(o.f); err != nil {
			o.f.Close()
			return err
		}
	}
	return o.f.Close()
}
