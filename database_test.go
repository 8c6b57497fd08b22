package recdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KarpelesLab/recdb"
)

type user struct {
	Name string
	Age  int
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.recdb")
}

func TestAddEntryAssignsSequentialUIDs(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	want := []user{{"ada", 36}, {"grace", 85}, {"margaret", 92}}
	for _, u := range want {
		if err := db.AddEntry(u); err != nil {
			t.Fatalf("AddEntry(%+v): %s", u, err)
		}
	}

	for uid, u := range want {
		entry, err := db.GetByUID(uint32(uid))
		if err != nil {
			t.Fatalf("GetByUID(%d): %s", uid, err)
		}
		if entry.UID != uint32(uid) || entry.Value != u {
			t.Errorf("GetByUID(%d) = %+v, want uid=%d value=%+v", uid, entry, uid, u)
		}
	}

	if _, err := db.GetByUID(uint32(len(want))); err != recdb.ErrEntryNotFound {
		t.Errorf("GetByUID past the end: got %v, want ErrEntryNotFound", err)
	}
}

func TestAddEntriesBatchMatchesSequentialInsertion(t *testing.T) {
	items := []user{{"carol", 40}, {"alan", 41}, {"barbara", 39}}
	less := func(a, b user) bool { return a.Name < b.Name }

	batchPath := tempDBPath(t)
	batchDB, err := recdb.Open[user](batchPath, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open batch db: %s", err)
	}
	defer batchDB.Close()

	set := recdb.NewOrderedSet(less)
	for _, u := range items {
		set.Add(u)
	}
	if err := batchDB.AddEntries(set); err != nil {
		t.Fatalf("AddEntries: %s", err)
	}

	seqPath := tempDBPath(t)
	seqDB, err := recdb.Open[user](seqPath, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open sequential db: %s", err)
	}
	defer seqDB.Close()
	for _, u := range set.Items() {
		if err := seqDB.AddEntry(u); err != nil {
			t.Fatalf("AddEntry: %s", err)
		}
	}

	batchBytes, err := os.ReadFile(batchPath)
	if err != nil {
		t.Fatalf("reading batch file: %s", err)
	}
	seqBytes, err := os.ReadFile(seqPath)
	if err != nil {
		t.Fatalf("reading sequential file: %s", err)
	}
	if string(batchBytes) != string(seqBytes) {
		t.Errorf("batch insert bytes differ from sequential insert bytes")
	}
}

func TestContains(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	if err := db.AddEntry(user{"linus", 55}); err != nil {
		t.Fatalf("AddEntry: %s", err)
	}

	ok, err := db.Contains(user{"linus", 55})
	if err != nil || !ok {
		t.Errorf("Contains existing value: ok=%v err=%v, want true/nil", ok, err)
	}
	ok, err = db.Contains(user{"linus", 99})
	if err != nil || ok {
		t.Errorf("Contains absent value: ok=%v err=%v, want false/nil", ok, err)
	}
}

func TestQueryFindsFirstMatch(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	for _, u := range []user{{"pat", 20}, {"sam", 30}, {"sam", 31}} {
		if err := db.AddEntry(u); err != nil {
			t.Fatalf("AddEntry: %s", err)
		}
	}

	entry, err := db.Query(func(v user) bool { return v.Name == "sam" })
	if err != nil {
		t.Fatalf("Query: %s", err)
	}
	if entry.UID != 1 {
		t.Errorf("Query returned uid %d, want first match at uid 1", entry.UID)
	}

	if _, err := db.Query(func(v user) bool { return v.Name == "nobody" }); err != recdb.ErrEntryNotFound {
		t.Errorf("Query with no match: got %v, want ErrEntryNotFound", err)
	}
}

func TestRemoveByUIDCompactsAndRenumbers(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	for _, u := range []user{{"a", 1}, {"b", 2}, {"c", 3}} {
		if err := db.AddEntry(u); err != nil {
			t.Fatalf("AddEntry: %s", err)
		}
	}

	if err := db.RemoveByUID(0); err != nil {
		t.Fatalf("RemoveByUID(0): %s", err)
	}

	entry, err := db.GetByUID(0)
	if err != nil {
		t.Fatalf("GetByUID(0) after remove: %s", err)
	}
	if entry.Value != (user{"b", 2}) {
		t.Errorf("GetByUID(0) after remove = %+v, want {b 2}", entry.Value)
	}
	entry, err = db.GetByUID(1)
	if err != nil {
		t.Fatalf("GetByUID(1) after remove: %s", err)
	}
	if entry.Value != (user{"c", 3}) {
		t.Errorf("GetByUID(1) after remove = %+v, want {c 3}", entry.Value)
	}
	if _, err := db.GetByUID(2); err != recdb.ErrEntryNotFound {
		t.Errorf("GetByUID(2) after remove: got %v, want ErrEntryNotFound", err)
	}

	if err := db.RemoveByUID(5); err != recdb.ErrEntryNotFound {
		t.Errorf("RemoveByUID of an out-of-range uid: got %v, want ErrEntryNotFound", err)
	}
}

func TestIterVisitsEveryEntryInOrder(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	want := []user{{"x", 1}, {"y", 2}, {"z", 3}}
	for _, u := range want {
		if err := db.AddEntry(u); err != nil {
			t.Fatalf("AddEntry: %s", err)
		}
	}

	it, err := db.Iter()
	if err != nil {
		t.Fatalf("Iter: %s", err)
	}
	defer it.Close()

	var got []user
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, entry.Value)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %s", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChunkIterYieldsRawChunks(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	if err := db.AddEntry(user{"raw", 1}); err != nil {
		t.Fatalf("AddEntry: %s", err)
	}

	ci, err := db.ChunkIter()
	if err != nil {
		t.Fatalf("ChunkIter: %s", err)
	}
	defer ci.Close()

	chunk, ok := ci.Next()
	if !ok {
		t.Fatalf("ChunkIter.Next: no chunk, err=%v", ci.Err())
	}
	if len(chunk) == 0 || len(chunk)%recdb.BlockSize != 0 {
		t.Errorf("chunk length %d is not a positive multiple of BlockSize", len(chunk))
	}
	if _, ok := ci.Next(); ok {
		t.Errorf("expected exactly one chunk")
	}
}

func TestOpenWithCompressedCodec(t *testing.T) {
	path := tempDBPath(t)
	codec := recdb.CompressedCodec[user]{Inner: recdb.GobCodec[user]{}}
	db, err := recdb.Open[user](path, recdb.WithCodec[user](codec), recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	if err := db.AddEntry(user{"zed", 7}); err != nil {
		t.Fatalf("AddEntry: %s", err)
	}
	entry, err := db.GetByUID(0)
	if err != nil {
		t.Fatalf("GetByUID: %s", err)
	}
	if entry.Value != (user{"zed", 7}) {
		t.Errorf("GetByUID = %+v, want {zed 7}", entry.Value)
	}
}

func TestOpenWithCustomEqual(t *testing.T) {
	path := tempDBPath(t)
	sameNameLength := func(a, b user) bool {
		return len(a.Name) == len(b.Name) && a.Age == b.Age
	}
	db, err := recdb.Open[user](path, recdb.WithEqual(sameNameLength), recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	if err := db.AddEntry(user{"abc", 1}); err != nil {
		t.Fatalf("AddEntry: %s", err)
	}
	ok, err := db.Contains(user{"xyz", 1})
	if err != nil {
		t.Fatalf("Contains: %s", err)
	}
	if !ok {
		t.Errorf("Contains with custom equal should treat same-length names as equal")
	}
}

func TestGetByUIDOnMissingFile(t *testing.T) {
	path := tempDBPath(t)
	db, err := recdb.Open[user](path, recdb.WithoutLock[user]())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer db.Close()

	if _, err := db.GetByUID(0); err == nil {
		t.Errorf("expected an error opening a nonexistent file for read, got nil")
	}
}
