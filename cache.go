package recdb

import "io"

// streamCache is a single-window, block-aligned page over a
// FileCapability. It mirrors the file range [cstart, cend) into buf,
// tracks a logical position pos, and defers writes until flush or
// eviction. One window is the entire memory budget of the cache by
// design: the struct never grows buf beyond CacheSize bytes, so it can
// be the single largest allocation in a memory-constrained embedding.
type streamCache struct {
	file FileCapability

	buf          []byte
	cstart, cend int64 // absolute byte range the window mirrors
	pos          int64 // logical absolute position (coff = pos-cstart)
	dirty        bool
}

func newStreamCache(file FileCapability) *streamCache {
	return &streamCache{
		file: file,
		buf:  make([]byte, CacheSize),
	}
}

func (c *streamCache) loaded() bool {
	return c.cend > c.cstart
}

// cacheFromStart seeks the backing file to p and loads up to CacheSize
// bytes into the window. A zero-byte read is reported as
// errEndOfFileStream; the window range still collapses to [p, p).
func (c *streamCache) cacheFromStart(p int64) error {
	if _, err := c.file.SeekAbsolute(p); err != nil {
		return err
	}

	total := 0
	for total < len(c.buf) {
		n, err := c.file.Read(c.buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if n == 0 {
			break
		}
	}

	c.cstart = p
	c.cend = p + int64(total)
	c.pos = p
	c.dirty = false

	if total == 0 {
		return errEndOfFileStream
	}
	return nil
}

// flush writes back a dirty window in place, restoring the file's
// previous cursor position afterward.
func (c *streamCache) flush() error {
	if !c.dirty || !c.loaded() {
		return nil
	}

	before, err := c.file.StreamPosition()
	if err != nil {
		return err
	}

	if _, err := c.file.SeekAbsolute(c.cstart); err != nil {
		return err
	}
	if _, err := c.file.Write(c.buf[:c.cend-c.cstart]); err != nil {
		return err
	}
	if _, err := c.file.SeekAbsolute(before); err != nil {
		return err
	}

	c.dirty = false
	return nil
}

// seekFromStart moves the logical cursor to the absolute position p. If
// p already falls inside the cached window this is O(1); otherwise the
// window is flushed and reloaded starting at p. Seeking to or past EOF
// is not an error: it leaves an empty window anchored at p.
func (c *streamCache) seekFromStart(p int64) error {
	if c.loaded() && c.cstart <= p && p <= c.cend {
		c.pos = p
		return nil
	}
	if err := c.flush(); err != nil {
		return err
	}
	if err := c.cacheFromStart(p); err != nil && err != errEndOfFileStream {
		return err
	}
	return nil
}

// read copies exactly one BlockSize-length block at the current
// position into block and advances the cursor. Returns
// errEndOfFileStream once the backing file is exhausted.
func (c *streamCache) read(block *[BlockSize]byte) error {
	for {
		if c.loaded() {
			coff := c.pos - c.cstart
			if coff+BlockSize <= c.cend-c.cstart {
				copy(block[:], c.buf[coff:coff+BlockSize])
				c.pos += BlockSize
				return nil
			}
		}

		if err := c.flush(); err != nil {
			return err
		}
		next := c.pos
		if c.loaded() {
			next = c.cstart + (c.pos - c.cstart)
		}
		if err := c.cacheFromStart(next); err != nil {
			return err
		}
		if c.cend-c.cstart < BlockSize {
			// Fewer than BlockSize bytes remain: no whole block is left.
			return errEndOfFileStream
		}
	}
}

// write copies buf into the window at the current position, growing or
// bypassing the window as needed, and marks it dirty. Three cases: a
// write larger than the window bypasses it entirely; a write that fits
// inside the currently loaded window is copied in place; anything else
// flushes, repositions the window, and copies in. The bypass path
// flushes first and reloads only after the direct write completes, so a
// large write can never straddle an unflushed dirty region.
func (c *streamCache) write(buf []byte) (int, error) {
	if len(buf) > len(c.buf) {
		if err := c.flush(); err != nil {
			return 0, err
		}
		if _, err := c.file.SeekAbsolute(c.pos); err != nil {
			return 0, err
		}
		n, err := c.file.Write(buf)
		if err != nil {
			return n, err
		}
		pos, err := c.file.StreamPosition()
		if err != nil {
			return n, err
		}
		c.cstart, c.cend, c.pos, c.dirty = 0, 0, pos, false
		return n, nil
	}

	if c.loaded() {
		coff := c.pos - c.cstart
		if coff >= 0 && coff+int64(len(buf)) <= c.cend-c.cstart {
			copy(c.buf[coff:], buf)
			c.pos += int64(len(buf))
			c.dirty = true
			return len(buf), nil
		}
	}

	if err := c.flush(); err != nil {
		return 0, err
	}
	target := c.pos
	if err := c.cacheFromStart(target); err != nil {
		if err != errEndOfFileStream {
			return 0, err
		}
		// Writing past EOF: start a fresh window anchored here and grow
		// it as bytes are copied in.
		c.cstart, c.cend, c.pos, c.dirty = target, target, target, false
	}

	coff := c.pos - c.cstart
	need := coff + int64(len(buf))
	if need > int64(len(c.buf)) {
		return 0, errWriteExceedsWindow
	}
	copy(c.buf[coff:need], buf)
	if need > c.cend-c.cstart {
		c.cend = c.cstart + need
	}
	c.pos += int64(len(buf))
	c.dirty = true
	return len(buf), nil
}

// setLen passes through to the backing file. It does not flush; callers
// order this relative to flush themselves (removeChunk truncates after
// its writes, then flushes).
func (c *streamCache) setLen(size int64) error {
	return c.file.SetLen(size)
}

func (c *streamCache) streamPosition() int64 {
	return c.pos
}

func (c *streamCache) close() error {
	if err := c.flush(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}
