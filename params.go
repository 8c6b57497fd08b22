package recdb

// BlockSize is the fixed byte length of a block, the quantum of the
// on-disk layout and the stream cache's read granularity. It is a
// compile-time constant: the format has no variable-block-size mode.
const BlockSize = 4

// CacheSize is the byte length of the stream cache's single window. It
// must be a non-zero multiple of BlockSize.
const CacheSize = 1024

// EOEBlock is the end-of-entry sentinel: a BlockSize-length byte pattern
// that must not occur as the UID block or an interior payload block of
// any chunk. Changing it changes the on-disk format; files are not
// portable across builds with a different sentinel.
var EOEBlock = [BlockSize]byte{0xFF, 0xFE, 0xFD, 0xFC}

func init() {
	if CacheSize == 0 || CacheSize%BlockSize != 0 {
		panic("recdb: CacheSize must be a non-zero multiple of BlockSize")
	}
	if BlockSize < 4 {
		panic("recdb: BlockSize must be at least 4 (uid block)")
	}
}
