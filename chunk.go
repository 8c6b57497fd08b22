package recdb

// chunkStream interprets a streamCache as a sequence of chunks
// terminated by EOEBlock. It is the layer that knows about chunk
// boundaries; the cache below it only knows about bytes and blocks.
type chunkStream struct {
	cache *streamCache
}

func newChunkStream(file FileCapability) *chunkStream {
	return &chunkStream{cache: newStreamCache(file)}
}

// readBlocks fills buf (whose length must be a multiple of BlockSize)
// one block at a time from the current position.
func (cs *chunkStream) readBlocks(buf []byte) error {
	for i := 0; i < len(buf); i += BlockSize {
		var block [BlockSize]byte
		if err := cs.cache.read(&block); err != nil {
			return err
		}
		copy(buf[i:i+BlockSize], block[:])
	}
	return nil
}

// iterChunk collects blocks from the current position until one equals
// EOEBlock, returning the whole chunk (UID block through EOEBlock
// inclusive).
//
// A truncated tail is only reported as ErrInvalidData once more than a
// bare single block has been committed to it. A tail consisting of
// exactly one trailing block (as happens when slack bytes are appended
// after the last real chunk) is indistinguishable from "no chunk here at
// all" and is treated as a clean end of stream instead of corruption.
func (cs *chunkStream) iterChunk() ([]byte, error) {
	var data []byte
	blocksRead := 0
	for {
		var block [BlockSize]byte
		err := cs.cache.read(&block)
		if err != nil {
			if err == errEndOfFileStream {
				if blocksRead <= 1 {
					return nil, errEndOfFileStream
				}
				return nil, ErrInvalidData
			}
			return nil, err
		}
		data = append(data, block[:]...)
		blocksRead++
		if block == EOEBlock {
			return data, nil
		}
	}
}

// lastChunk repeatedly calls iterChunk and returns the final chunk seen,
// or nil if the file holds no chunks at all. A genuine ErrInvalidData
// from a truncated tail is surfaced rather than silently treated the
// same as a clean end of stream, since callers use this to compute the
// next UID to assign and a corrupt tail shouldn't produce a plausible
// but wrong one.
func (cs *chunkStream) lastChunk() ([]byte, error) {
	var last []byte
	for {
		chunk, err := cs.iterChunk()
		if err != nil {
			if err == errEndOfFileStream {
				return last, nil
			}
			return nil, err
		}
		last = chunk
	}
}

// getChunkBounds records the absolute file position before and after
// consuming one chunk from the current position, then rewinds the
// cursor back to the start. Used by removeChunk to locate the victim and
// each subsequent chunk that must shift left.
func (cs *chunkStream) getChunkBounds() (start, end int64, err error) {
	start = cs.cache.streamPosition()
	if _, err = cs.iterChunk(); err != nil {
		return 0, 0, err
	}
	end = cs.cache.streamPosition()
	if err = cs.cache.seekFromStart(start); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// appendEnd advances the cursor to EOF and writes data there. data is
// expected to be one or more well-formed chunks produced by the entry
// codec.
func (cs *chunkStream) appendEnd(data []byte) error {
	for {
		if _, err := cs.iterChunk(); err != nil {
			if err == errEndOfFileStream {
				break
			}
			return err
		}
	}
	_, err := cs.cache.write(data)
	return err
}

// removeChunk implements the compacting delete: the chunk at the current
// position (expected to carry UID victimUID) is overwritten in place by
// each following chunk shifted left by one slot, with its UID block
// rewritten to stay dense, and the file is truncated to drop the
// trailing duplicate. errEndOfFileStream propagates to the caller when
// there is no chunk at the current position at all (UID out of range).
func (cs *chunkStream) removeChunk(victimUID uint32) error {
	st1, en1, err := cs.getChunkBounds()
	if err != nil {
		return err
	}

	writePos := st1
	nextUID := victimUID
	pos := en1

	for {
		if err := cs.cache.seekFromStart(pos); err != nil {
			return err
		}
		chunkStart, chunkEnd, err := cs.getChunkBounds()
		if err != nil {
			if err == errEndOfFileStream {
				break
			}
			return err
		}

		length := chunkEnd - chunkStart
		if err := cs.cache.seekFromStart(chunkStart); err != nil {
			return err
		}
		buf := make([]byte, length)
		if err := cs.readBlocks(buf); err != nil {
			return err
		}

		uidBlock := SerializeUID(nextUID)
		copy(buf[:BlockSize], uidBlock[:])

		if err := cs.cache.seekFromStart(writePos); err != nil {
			return err
		}
		if _, err := cs.cache.write(buf); err != nil {
			return err
		}

		writePos += length
		nextUID++
		pos = chunkEnd
	}

	if err := cs.cache.setLen(writePos); err != nil {
		return err
	}
	return cs.cache.flush()
}

func (cs *chunkStream) flush() error {
	return cs.cache.flush()
}

func (cs *chunkStream) close() error {
	return cs.cache.close()
}
