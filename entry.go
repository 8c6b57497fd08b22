package recdb

// entryCodec wraps a Codec[T] with the on-disk chunk framing: a UID
// block, the codec-encoded payload zero-padded to a block boundary, and
// the EOEBlock terminator. The core imposes no framing of its own on the
// payload beyond that padding — it is up to each Codec to make its
// encoded length recoverable from its own bytes (self-delimiting, as
// gob already is) or tolerant of arbitrary trailing zero bytes. Codecs
// whose wire format is neither (e.g. a raw compression frame) need to
// add their own internal length-prefix; see CompressedCodec/XZCodec in
// codec.go.
type entryCodec[T any] struct {
	codec Codec[T]
}

func newEntryCodec[T any](codec Codec[T]) *entryCodec[T] {
	return &entryCodec[T]{codec: codec}
}

func padToBlock(buf []byte) []byte {
	rem := len(buf) % BlockSize
	if rem == 0 {
		return buf
	}
	return append(buf, make([]byte, BlockSize-rem)...)
}

// serialize produces one complete chunk for value v tagged with uid.
func (e *entryCodec[T]) serialize(uid uint32, v T) ([]byte, error) {
	raw, err := e.codec.Encode(v)
	if err != nil {
		return nil, ErrSerialize
	}

	uidBlock := SerializeUID(uid)
	chunk := make([]byte, 0, BlockSize+len(raw)+BlockSize+BlockSize)
	chunk = append(chunk, uidBlock[:]...)
	chunk = append(chunk, padToBlock(raw)...)
	chunk = append(chunk, EOEBlock[:]...)
	return chunk, nil
}

// serializeItems produces a concatenation of chunks, one per item in
// items' iteration order, with consecutive UIDs starting at uid0. This
// is what pins down P4: batch insertion byte-for-byte matches inserting
// the same values one at a time in the set's iteration order.
func (e *entryCodec[T]) serializeItems(uid0 uint32, items []T) ([]byte, error) {
	var out []byte
	uid := uid0
	for _, item := range items {
		chunk, err := e.serialize(uid, item)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		uid++
	}
	return out, nil
}

// deserialize splits a complete chunk (UID block through EOEBlock
// inclusive, as returned by chunkStream.iterChunk) back into a uid and
// value. The payload handed to the codec still carries whatever
// trailing zero padding was added to reach a block boundary; the codec
// is responsible for stopping at its own encoded length.
func (e *entryCodec[T]) deserialize(chunk []byte) (uint32, T, error) {
	var zero T
	if len(chunk) < 2*BlockSize {
		return 0, zero, ErrInvalidData
	}

	uid, err := DeserializeUID(chunk[:BlockSize])
	if err != nil {
		return 0, zero, err
	}

	body := chunk[BlockSize : len(chunk)-BlockSize]
	v, err := e.codec.Decode(body)
	if err != nil {
		return uid, zero, err
	}
	return uid, v, nil
}

// Entry pairs a decoded value with the UID it was stored under.
type Entry[T any] struct {
	UID   uint32
	Value T
}

// EntryIterator pairs a chunkStream with an entryCodec, yielding decoded
// (uid, value) pairs or decode errors.
type EntryIterator[T any] struct {
	stream *chunkStream
	codec  *entryCodec[T]
	err    error
}

// Next advances the iterator. It returns false once the file is
// exhausted or a non-recoverable error occurred; callers should check
// Err after a false return to distinguish clean end from failure.
func (it *EntryIterator[T]) Next() (Entry[T], bool) {
	if it.err != nil {
		return Entry[T]{}, false
	}
	chunk, err := it.stream.iterChunk()
	if err != nil {
		if err != errEndOfFileStream {
			it.err = err
		}
		return Entry[T]{}, false
	}
	uid, v, err := it.codec.deserialize(chunk)
	if err != nil {
		it.err = err
		return Entry[T]{}, false
	}
	return Entry[T]{UID: uid, Value: v}, true
}

// Err returns the error that stopped iteration, if any.
func (it *EntryIterator[T]) Err() error {
	return it.err
}

// Close flushes the underlying cache window. Iterators returned by
// Database.Iter share the façade's file handle, so Close stops short of
// closing the handle itself — that remains Database.Close's job.
func (it *EntryIterator[T]) Close() error {
	return it.stream.flush()
}

// ChunkIterator yields raw, still-encoded chunks, for callers that want
// to inspect or copy the on-disk representation without paying for
// decoding.
type ChunkIterator struct {
	stream *chunkStream
	err    error
}

func (it *ChunkIterator) Next() ([]byte, bool) {
	if it.err != nil {
		return nil, false
	}
	chunk, err := it.stream.iterChunk()
	if err != nil {
		if err != errEndOfFileStream {
			it.err = err
		}
		return nil, false
	}
	return chunk, true
}

func (it *ChunkIterator) Err() error {
	return it.err
}

// Close flushes the underlying cache window; see EntryIterator.Close.
func (it *ChunkIterator) Close() error {
	return it.stream.flush()
}
