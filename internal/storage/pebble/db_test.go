package pebblestore

import (
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetGetDelete(t *testing.T) {
	db := newTestDB(t)
	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("want v, got %q", got)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRange(t *testing.T) {
	db := newTestDB(t)
	for _, k := range []string{"s/a/1", "s/a/2", "s/b/1"} {
		if err := db.Set([]byte(k), []byte("x")); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := db.DeleteRange([]byte("s/a/"), []byte("s/a/\xff")); err != nil {
		t.Fatalf("delete range: %v", err)
	}
	if _, err := db.Get([]byte("s/a/1")); !IsNotFound(err) {
		t.Fatalf("s/a/1 should be gone")
	}
	if _, err := db.Get([]byte("s/b/1")); err != nil {
		t.Fatalf("s/b/1 should survive: %v", err)
	}
}

func TestParseFsyncMode(t *testing.T) {
	if m, err := ParseFsyncMode("interval"); err != nil || m != FsyncModeInterval {
		t.Fatalf("interval: %v %v", m, err)
	}
	if _, err := ParseFsyncMode("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}
