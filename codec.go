package recdb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec is the pluggable value serializer: the core only ever sees the
// bytes it produces. Any Codec whose Decode(Encode(v)) round-trips v can
// be used with Database[T]. The entry layer pads Encode's output with
// trailing zero bytes up to a block boundary and passes the padded
// buffer straight to Decode, so a Codec must itself either be
// self-delimiting (recover its exact encoded length from its own bytes,
// as gob already does) or otherwise tolerate arbitrary trailing zero
// padding.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// GobCodec is the default Codec, backed by encoding/gob. Justification
// for reaching into the standard library here: none of the retrieved
// repositories' third-party dependencies offer a generic self-describing
// encoder for an arbitrary type parameter T (the pack's serialization
// libraries all target a fixed wire schema or generated types); gob is
// the standard answer to "encode any registered Go value" and is what
// the compressed decorators below wrap.
type GobCodec[T any] struct{}

func (GobCodec[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, ErrSerialize
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, ErrDeserialize
	}
	return v, nil
}

// putUvarintPrefix prepends the uvarint-encoded length of payload to
// itself. Compression frames (zstd, xz) are not tolerant of trailing
// garbage the way a self-delimiting codec is, so the decorators below
// carry their own length prefix rather than relying on the entry
// layer's padding to be harmless.
func putUvarintPrefix(payload []byte) []byte {
	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, uint64(len(payload)))
	return append(prefix[:n], payload...)
}

// splitUvarintPrefix reverses putUvarintPrefix, ignoring any bytes past
// the declared length (the zero padding the entry layer may have
// appended).
func splitUvarintPrefix(data []byte) ([]byte, error) {
	length, n := binary.Uvarint(data)
	if n <= 0 || uint64(n)+length > uint64(len(data)) {
		return nil, ErrDeserialize
	}
	return data[n : n+int(length)], nil
}

// CompressedCodec decorates another Codec with zstd compression, for
// callers storing values large enough that the space savings outweigh
// the per-entry compression overhead.
type CompressedCodec[T any] struct {
	Inner Codec[T]
}

func (c CompressedCodec[T]) Encode(v T) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, ErrSerialize
	}
	defer enc.Close()
	return putUvarintPrefix(enc.EncodeAll(raw, nil)), nil
}

func (c CompressedCodec[T]) Decode(data []byte) (T, error) {
	var zero T
	framed, err := splitUvarintPrefix(data)
	if err != nil {
		return zero, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return zero, ErrDeserialize
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(framed, nil)
	if err != nil {
		return zero, ErrDeserialize
	}
	return c.Inner.Decode(raw)
}

// XZCodec decorates another Codec with xz compression. Slower than
// CompressedCodec but typically produces smaller output, a fit for
// cold archival data rather than frequently rewritten entries.
type XZCodec[T any] struct {
	Inner Codec[T]
}

func (c XZCodec[T]) Encode(v T) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	w, err := xz.NewWriter(&out)
	if err != nil {
		return nil, ErrSerialize
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, ErrSerialize
	}
	if err := w.Close(); err != nil {
		return nil, ErrSerialize
	}
	return putUvarintPrefix(out.Bytes()), nil
}

func (c XZCodec[T]) Decode(data []byte) (T, error) {
	var zero T
	framed, err := splitUvarintPrefix(data)
	if err != nil {
		return zero, err
	}
	r, err := xz.NewReader(bytes.NewReader(framed))
	if err != nil {
		return zero, ErrDeserialize
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return zero, ErrDeserialize
	}
	return c.Inner.Decode(out.Bytes())
}
