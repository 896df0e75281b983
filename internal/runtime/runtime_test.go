package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/strandio/strand/internal/config"
	pebblestore "github.com/strandio/strand/internal/storage/pebble"
)

func TestOpenAndHealth(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rt.Config().HTTPAddr == "" {
		t.Fatal("config not carried")
	}
}
