package recdb

import (
	"log"
	"os"
)

// rwMode is the [read, write, create] triple the façade memoizes its
// open file handle against, so a tight sequence of calls (several
// writes, then a scan) doesn't reopen the file each time.
type rwMode struct {
	read, write, create bool
}

func (m rwMode) flag() int {
	var flag int
	switch {
	case m.read && m.write:
		flag = os.O_RDWR
	case m.write:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if m.create {
		flag |= os.O_CREATE
	}
	return flag
}

// Database is the user-facing façade: it maps typed operations onto
// chunkStream calls and owns the file handle's open mode across calls.
type Database[T any] struct {
	path   string
	codec  Codec[T]
	equal  func(a, b T) bool
	noLock bool

	file    *osFile
	mode    rwMode
	hasFile bool
}

// Open constructs a handle for the database file at path. The file is
// not opened until the first operation that needs it.
func Open[T any](path string, opts ...Option[T]) (*Database[T], error) {
	cfg := newDBConfig[T]()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Database[T]{
		path:   path,
		codec:  cfg.codec,
		equal:  cfg.equal,
		noLock: cfg.noLock,
	}, nil
}

// openFile returns the currently-held file if its mode is exactly the
// one requested, otherwise closes it and reopens in the new mode.
func (db *Database[T]) openFile(mode rwMode) (*osFile, error) {
	if db.hasFile {
		if db.mode == mode {
			return db.file, nil
		}
		db.file.Close()
		db.hasFile = false
	}

	log.Printf("recdb: opening %s (read=%v write=%v create=%v)", db.path, mode.read, mode.write, mode.create)
	f, err := openOSFile(db.path, mode.flag(), 0o644, !db.noLock)
	if err != nil {
		return nil, err
	}
	db.file = f
	db.mode = mode
	db.hasFile = true
	return f, nil
}

// Close releases the held file handle, if any. A Database is safe to
// reuse afterward; the next operation reopens the file.
func (db *Database[T]) Close() error {
	if !db.hasFile {
		return nil
	}
	err := db.file.Close()
	db.hasFile = false
	return err
}

func nextUID(cs *chunkStream) (uint32, error) {
	last, err := cs.lastChunk()
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	uid, err := DeserializeUID(last[:BlockSize])
	if err != nil {
		return 0, err
	}
	return uid + 1, nil
}

// AddEntry appends one chunk with UID = last_uid + 1, or 0 for an empty
// file.
func (db *Database[T]) AddEntry(value T) error {
	f, err := db.openFile(rwMode{read: true, write: true, create: true})
	if err != nil {
		return err
	}
	cs := newChunkStream(f)

	uid, err := nextUID(cs)
	if err != nil {
		return err
	}

	ec := newEntryCodec(db.codec)
	data, err := ec.serialize(uid, value)
	if err != nil {
		return err
	}
	if err := cs.appendEnd(data); err != nil {
		return err
	}
	return cs.flush()
}

// AddEntries appends a batch of chunks with consecutive UIDs starting at
// last_uid + 1, one per item in items' iteration order.
func (db *Database[T]) AddEntries(items *OrderedSet[T]) error {
	f, err := db.openFile(rwMode{read: true, write: true, create: true})
	if err != nil {
		return err
	}
	cs := newChunkStream(f)

	uid, err := nextUID(cs)
	if err != nil {
		return err
	}

	ec := newEntryCodec(db.codec)
	data, err := ec.serializeItems(uid, items.Items())
	if err != nil {
		return err
	}
	if err := cs.appendEnd(data); err != nil {
		return err
	}
	return cs.flush()
}

// entryIterFromStream builds an EntryIterator over an already-open
// chunkStream, sharing the façade's codec.
func (db *Database[T]) entryIterFromStream(cs *chunkStream) *EntryIterator[T] {
	return &EntryIterator[T]{stream: cs, codec: newEntryCodec(db.codec)}
}

// openRead opens the file read-only and hands back a fresh chunkStream
// over the façade's memoized handle. Unlike Iter/ChunkIter, failures here
// propagate the underlying IOError rather than ErrFailedToRetrieveIterator:
// that sentinel is reserved for the two iterator constructors.
func (db *Database[T]) openRead() (*chunkStream, error) {
	f, err := db.openFile(rwMode{read: true})
	if err != nil {
		return nil, err
	}
	return newChunkStream(f), nil
}

// GetByUID returns the (uid, value) pair with uid == u.
func (db *Database[T]) GetByUID(u uint32) (Entry[T], error) {
	cs, err := db.openRead()
	if err != nil {
		return Entry[T]{}, err
	}
	it := db.entryIterFromStream(cs)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if entry.UID == u {
			return entry, nil
		}
	}
	if err := it.Err(); err != nil {
		return Entry[T]{}, err
	}
	return Entry[T]{}, ErrEntryNotFound
}

// Contains reports whether value is present anywhere in the file.
func (db *Database[T]) Contains(value T) (bool, error) {
	cs, err := db.openRead()
	if err != nil {
		return false, err
	}
	it := db.entryIterFromStream(cs)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if db.equal(entry.Value, value) {
			return true, nil
		}
	}
	return false, it.Err()
}

// Query returns the first entry for which match reports true. match
// typically closes over a projection and a key, e.g.
// func(v T) bool { return project(v) == key }.
func (db *Database[T]) Query(match func(T) bool) (Entry[T], error) {
	cs, err := db.openRead()
	if err != nil {
		return Entry[T]{}, err
	}
	it := db.entryIterFromStream(cs)
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if match(entry.Value) {
			return entry, nil
		}
	}
	if err := it.Err(); err != nil {
		return Entry[T]{}, err
	}
	return Entry[T]{}, ErrEntryNotFound
}

// RemoveByUID deletes the entry with uid == u, shifting every later
// entry left by one slot and renumbering it so UIDs stay dense.
func (db *Database[T]) RemoveByUID(u uint32) error {
	f, err := db.openFile(rwMode{read: true, write: true})
	if err != nil {
		return err
	}
	cs := newChunkStream(f)

	for i := uint32(0); i < u; i++ {
		if _, err := cs.iterChunk(); err != nil {
			if err == errEndOfFileStream {
				return ErrEntryNotFound
			}
			return err
		}
	}

	if err := cs.removeChunk(u); err != nil {
		if err == errEndOfFileStream {
			return ErrEntryNotFound
		}
		return err
	}
	return nil
}

// Iter returns an iterator over the whole file, decoded to (uid, value)
// pairs.
func (db *Database[T]) Iter() (*EntryIterator[T], error) {
	cs, err := db.openRead()
	if err != nil {
		return nil, ErrFailedToRetrieveIterator
	}
	return db.entryIterFromStream(cs), nil
}

// ChunkIter returns an iterator over raw, still-encoded chunks.
func (db *Database[T]) ChunkIter() (*ChunkIterator, error) {
	cs, err := db.openRead()
	if err != nil {
		return nil, ErrFailedToRetrieveIterator
	}
	return &ChunkIterator{stream: cs}, nil
}
