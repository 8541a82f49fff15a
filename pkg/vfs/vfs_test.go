package vfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *VirtualFS {
	t.Helper()
	fs := New(Config{User: "alice"})
	require.True(t, fs.Initialize(context.Background()))
	t.Cleanup(func() { fs.Shutdown(context.Background()) })
	return fs
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	for _, path := range []string{"/bin", "/etc", "/home", "/root", "/tmp", "/usr/local", "/var/log"} {
		assert.True(t, fs.Exists(ctx, path), path)
	}

	// Idempotent.
	assert.True(t, fs.Initialize(ctx))

	events := fs.RecentEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, EventSystemInitialized, events[0].Type)
}

func TestAutoInitialize(t *testing.T) {
	fs := New(Config{})
	defer fs.Shutdown(context.Background())

	// First use without an explicit Initialize still sees the skeleton.
	assert.True(t, fs.Exists(context.Background(), "/etc"))
}

func TestCreateFile(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	t.Run("Create", func(t *testing.T) {
		require.True(t, fs.CreateFile(ctx, "/tmp/a.txt", []byte("hello")))
		assert.Equal(t, "hello", string(fs.ReadFile(ctx, "/tmp/a.txt")))
	})

	t.Run("DuplicateName", func(t *testing.T) {
		assert.False(t, fs.CreateFile(ctx, "/tmp/a.txt", nil))
	})

	t.Run("MissingParent", func(t *testing.T) {
		assert.False(t, fs.CreateFile(ctx, "/no/such/dir/file", nil))
	})

	t.Run("Root", func(t *testing.T) {
		assert.False(t, fs.CreateFile(ctx, "/", nil))
	})
}

func TestCreateDirectory(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	t.Run("Intermediates", func(t *testing.T) {
		before := len(fs.RecentEvents())
		require.True(t, fs.CreateDirectory(ctx, "/srv/app/data/cache"))
		assert.True(t, fs.Exists(ctx, "/srv/app"))
		assert.True(t, fs.Exists(ctx, "/srv/app/data"))

		// One DirectoryCreated event for the whole operation.
		events := fs.RecentEvents()[before:]
		require.Len(t, events, 1)
		assert.Equal(t, EventDirectoryCreated, events[0].Type)
		assert.Equal(t, "/srv/app/data/cache", events[0].Path)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		before := len(fs.RecentEvents())
		assert.True(t, fs.CreateDirectory(ctx, "/srv/app/data/cache"))
		assert.Len(t, fs.RecentEvents()[before:], 0)
	})

	t.Run("FileInTheWay", func(t *testing.T) {
		require.True(t, fs.CreateFile(ctx, "/srv/app/lock", nil))
		assert.False(t, fs.CreateDirectory(ctx, "/srv/app/lock/sub"))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	t.Run("Root", func(t *testing.T) {
		assert.False(t, fs.Delete(ctx, "/", true))
	})

	t.Run("Missing", func(t *testing.T) {
		assert.False(t, fs.Delete(ctx, "/tmp/nothing", false))
	})

	t.Run("File", func(t *testing.T) {
		require.True(t, fs.CreateFile(ctx, "/tmp/gone.txt", nil))
		assert.True(t, fs.Delete(ctx, "/tmp/gone.txt", false))
		assert.False(t, fs.Exists(ctx, "/tmp/gone.txt"))
	})

	t.Run("NonEmptyNeedsRecursive", func(t *testing.T) {
		require.True(t, fs.CreateDirectory(ctx, "/tmp/work"))
		require.True(t, fs.CreateFile(ctx, "/tmp/work/f", nil))

		assert.False(t, fs.Delete(ctx, "/tmp/work", false))
		assert.True(t, fs.Delete(ctx, "/tmp/work", true))
		assert.False(t, fs.Exists(ctx, "/tmp/work"))

		// Descendants must not survive through the cache.
		assert.False(t, fs.Exists(ctx, "/tmp/work/f"))
	})
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.True(t, fs.CreateDirectory(ctx, "/tmp/ls"))
	require.True(t, fs.CreateFile(ctx, "/tmp/ls/zz", nil))
	require.True(t, fs.CreateFile(ctx, "/tmp/ls/aa", nil))
	require.True(t, fs.CreateFile(ctx, "/tmp/ls/.secret", nil))

	entries := fs.ListDirectory(ctx, "/tmp/ls", false)
	require.Len(t, entries, 2)
	assert.Equal(t, "aa", entries[0].Name())
	assert.Equal(t, "zz", entries[1].Name())

	assert.Len(t, fs.ListDirectory(ctx, "/tmp/ls", true), 3)

	// A non-directory path lists empty rather than erroring.
	assert.Empty(t, fs.ListDirectory(ctx, "/tmp/ls/aa", false))
	assert.Empty(t, fs.ListDirectory(ctx, "/tmp/missing", false))
}

func TestWriteAndAppend(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	t.Run("WriteCreatesWhenAbsent", func(t *testing.T) {
		require.True(t, fs.WriteFile(ctx, "/tmp/log.txt", []byte("one\n")))
		assert.Equal(t, "one\n", string(fs.ReadFile(ctx, "/tmp/log.txt")))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.True(t, fs.WriteFile(ctx, "/tmp/log.txt", []byte("two\n")))
		assert.Equal(t, "two\n", string(fs.ReadFile(ctx, "/tmp/log.txt")))
	})

	t.Run("Append", func(t *testing.T) {
		require.True(t, fs.AppendFile(ctx, "/tmp/log.txt", []byte("three\n")))
		assert.Equal(t, "two\nthree\n", string(fs.ReadFile(ctx, "/tmp/log.txt")))
	})

	t.Run("WriteToDirectory", func(t *testing.T) {
		assert.False(t, fs.WriteFile(ctx, "/tmp", []byte("x")))
	})
}

func TestSymbolicLinks(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.True(t, fs.CreateDirectory(ctx, "/opt/app"))
	require.True(t, fs.CreateFile(ctx, "/opt/app/config.ini", []byte("debug=false")))

	t.Run("ReadThroughLink", func(t *testing.T) {
		require.True(t, fs.CreateSymbolicLink(ctx, "/etc/app.ini", "/opt/app/config.ini"))
		assert.Equal(t, "debug=false", string(fs.ReadFile(ctx, "/etc/app.ini")))
	})

	t.Run("WriteThroughLink", func(t *testing.T) {
		require.True(t, fs.WriteFile(ctx, "/etc/app.ini", []byte("debug=true")))
		assert.Equal(t, "debug=true", string(fs.ReadFile(ctx, "/opt/app/config.ini")))

		// The link itself stays a link.
		entries := fs.ListDirectory(ctx, "/etc", false)
		var found bool
		for _, e := range entries {
			if e.Name() == "app.ini" {
				found = true
				assert.True(t, e.IsSymlink())
			}
		}
		assert.True(t, found)
	})

	t.Run("RelativeTarget", func(t *testing.T) {
		// Resolves against the link's own directory.
		require.True(t, fs.CreateSymbolicLink(ctx, "/opt/app/current", "config.ini"))
		assert.Equal(t, "debug=true", string(fs.ReadFile(ctx, "/opt/app/current")))
	})

	t.Run("BrokenLink", func(t *testing.T) {
		require.True(t, fs.CreateSymbolicLink(ctx, "/tmp/dangling", "/no/such/target"))
		assert.True(t, fs.Exists(ctx, "/tmp/dangling"))
		assert.Nil(t, fs.ReadFile(ctx, "/tmp/dangling"))
	})

	t.Run("LinkCycle", func(t *testing.T) {
		require.True(t, fs.CreateSymbolicLink(ctx, "/tmp/loop-a", "/tmp/loop-b"))
		require.True(t, fs.CreateSymbolicLink(ctx, "/tmp/loop-b", "/tmp/loop-a"))
		assert.Nil(t, fs.ReadFile(ctx, "/tmp/loop-a"))
	})

	t.Run("EmptyTarget", func(t *testing.T) {
		assert.False(t, fs.CreateSymbolicLink(ctx, "/tmp/empty-link", ""))
	})
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.True(t, fs.CreateDirectory(ctx, "/home/alice/docs"))
	require.True(t, fs.CreateFile(ctx, "/home/alice/docs/a.txt", []byte("v1")))

	t.Run("FileIndependence", func(t *testing.T) {
		require.True(t, fs.Copy(ctx, "/home/alice/docs/a.txt", "/tmp/a.txt"))
		require.True(t, fs.WriteFile(ctx, "/tmp/a.txt", []byte("v2")))
		assert.Equal(t, "v1", string(fs.ReadFile(ctx, "/home/alice/docs/a.txt")))
		assert.Equal(t, "v2", string(fs.ReadFile(ctx, "/tmp/a.txt")))
	})

	t.Run("Directory", func(t *testing.T) {
		require.True(t, fs.Copy(ctx, "/home/alice/docs", "/home/alice/backup"))
		assert.Equal(t, "v1", string(fs.ReadFile(ctx, "/home/alice/backup/a.txt")))
	})

	t.Run("DestinationExists", func(t *testing.T) {
		assert.False(t, fs.Copy(ctx, "/home/alice/docs", "/home/alice/backup"))
	})

	t.Run("MissingSource", func(t *testing.T) {
		assert.False(t, fs.Copy(ctx, "/no/such", "/tmp/x"))
	})

	t.Run("MissingDestinationParent", func(t *testing.T) {
		assert.False(t, fs.Copy(ctx, "/home/alice/docs/a.txt", "/no/such/dir/a.txt"))
	})
}

func TestMoveAndRename(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.True(t, fs.CreateDirectory(ctx, "/var/spool"))
	require.True(t, fs.CreateFile(ctx, "/var/spool/job1", []byte("payload")))

	t.Run("Move", func(t *testing.T) {
		require.True(t, fs.Move(ctx, "/var/spool/job1", "/tmp/job1"))
		assert.False(t, fs.Exists(ctx, "/var/spool/job1"))
		assert.Equal(t, "payload", string(fs.ReadFile(ctx, "/tmp/job1")))
	})

	t.Run("CollisionPreservesSource", func(t *testing.T) {
		require.True(t, fs.CreateFile(ctx, "/tmp/other", nil))
		assert.False(t, fs.Move(ctx, "/tmp/job1", "/tmp/other"))
		assert.True(t, fs.Exists(ctx, "/tmp/job1"))
	})

	t.Run("IntoOwnSubtree", func(t *testing.T) {
		require.True(t, fs.CreateDirectory(ctx, "/opt/pack/sub"))
		require.True(t, fs.CreateFile(ctx, "/opt/pack/data.txt", []byte("keep")))

		// Deleting the source would take the fresh copy with it, so the
		// whole operation must refuse up front.
		assert.False(t, fs.Move(ctx, "/opt/pack", "/opt/pack/sub/nested"))
		assert.False(t, fs.Move(ctx, "/opt/pack", "/opt/pack"))

		assert.True(t, fs.Exists(ctx, "/opt/pack/data.txt"))
		assert.Equal(t, "keep", string(fs.ReadFile(ctx, "/opt/pack/data.txt")))
		assert.False(t, fs.Exists(ctx, "/opt/pack/sub/nested"))

		// A sibling sharing the name prefix is still a legal destination.
		require.True(t, fs.CreateDirectory(ctx, "/opt/packaged"))
		assert.True(t, fs.Move(ctx, "/opt/pack/data.txt", "/opt/packaged/data.txt"))
	})

	t.Run("Rename", func(t *testing.T) {
		require.True(t, fs.Rename(ctx, "/tmp/job1", "job1.done"))
		assert.False(t, fs.Exists(ctx, "/tmp/job1"))
		assert.Equal(t, "payload", string(fs.ReadFile(ctx, "/tmp/job1.done")))
	})

	t.Run("RenameEmptyName", func(t *testing.T) {
		assert.False(t, fs.Rename(ctx, "/tmp/job1.done", ""))
	})
}

func TestSessionPaths(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	assert.Equal(t, "/", fs.CurrentDirectory())
	assert.Equal(t, "alice", fs.CurrentUser())

	t.Run("ChdirAndRelativeOps", func(t *testing.T) {
		require.True(t, fs.CreateDirectory(ctx, "/home/alice"))
		require.True(t, fs.ChangeDirectory(ctx, "/home/alice"))
		assert.Equal(t, "/home/alice", fs.CurrentDirectory())

		require.True(t, fs.CreateFile(ctx, "notes.txt", []byte("hi")))
		assert.True(t, fs.Exists(ctx, "/home/alice/notes.txt"))
		assert.Equal(t, "hi", string(fs.ReadFile(ctx, "notes.txt")))
	})

	t.Run("Tilde", func(t *testing.T) {
		assert.Equal(t, "hi", string(fs.ReadFile(ctx, "~/notes.txt")))
	})

	t.Run("ChdirToFile", func(t *testing.T) {
		assert.False(t, fs.ChangeDirectory(ctx, "/home/alice/notes.txt"))
		assert.Equal(t, "/home/alice", fs.CurrentDirectory())
	})

	t.Run("ChdirMissing", func(t *testing.T) {
		assert.False(t, fs.ChangeDirectory(ctx, "/nowhere"))
	})
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.True(t, fs.CreateFile(ctx, "/tmp/s.txt", []byte("abc")))

	meta := fs.Stat(ctx, "/tmp/s.txt")
	require.NotNil(t, meta)
	assert.Equal(t, "s.txt", meta.Name)
	assert.Equal(t, "/tmp/s.txt", meta.Path)
	assert.Equal(t, NodeTypeFile, meta.Type)
	assert.NotZero(t, meta.CreatedAt)

	// Stat hands out a copy, not the live metadata.
	meta.Name = "mutated"
	assert.Equal(t, "s.txt", fs.Stat(ctx, "/tmp/s.txt").Name)

	assert.Nil(t, fs.Stat(ctx, "/tmp/missing"))
}

func TestMounts(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	t.Run("MountCreatesDirectory", func(t *testing.T) {
		require.True(t, fs.Mount(ctx, "corp-nas:/share", "/mnt/share", "nfs", "ro"))
		assert.True(t, fs.Exists(ctx, "/mnt/share"))
	})

	t.Run("DuplicateMount", func(t *testing.T) {
		assert.False(t, fs.Mount(ctx, "other:/x", "/mnt/share", "nfs", ""))
	})

	t.Run("MountInfo", func(t *testing.T) {
		assert.Equal(t, "corp-nas:/share /mnt/share nfs ro\n", fs.MountInfo())
	})

	t.Run("BusyUnmount", func(t *testing.T) {
		require.True(t, fs.SetMountBusy("/mnt/share", true))
		assert.False(t, fs.Unmount(ctx, "/mnt/share", false))
		assert.True(t, fs.Unmount(ctx, "/mnt/share", true))
		assert.Equal(t, "", fs.MountInfo())
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	ch, cancel := fs.Subscribe()
	defer cancel()

	require.True(t, fs.CreateFile(ctx, "/tmp/ev.txt", nil))

	ev := <-ch
	assert.Equal(t, EventFileCreated, ev.Type)
	assert.Equal(t, "/tmp/ev.txt", ev.Path)
	assert.NotZero(t, ev.Timestamp)

	require.True(t, fs.Copy(ctx, "/tmp/ev.txt", "/tmp/ev2.txt"))
	ev = <-ch
	assert.Equal(t, EventFileCopied, ev.Type)
	assert.Equal(t, "/tmp/ev.txt", ev.SourcePath)
	assert.Equal(t, "/tmp/ev2.txt", ev.TargetPath)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	fs := New(Config{User: "alice", Store: store})
	require.True(t, fs.Initialize(ctx))
	require.True(t, fs.CreateDirectory(ctx, "/home/alice"))
	require.True(t, fs.CreateFile(ctx, "/home/alice/keep.txt", []byte("survives")))
	require.True(t, fs.Save(ctx))
	fs.Shutdown(ctx)

	// A fresh instance over the same store rehydrates the saved tree.
	restored := New(Config{User: "alice", Store: store})
	require.True(t, restored.Initialize(ctx))
	defer restored.Shutdown(ctx)

	assert.Equal(t, "survives", string(restored.ReadFile(ctx, "/home/alice/keep.txt")))
	assert.True(t, restored.Exists(ctx, "/etc"))
}

// gatedStore delays Get until the gate opens, holding rehydration mid-load.
type gatedStore struct {
	*MemoryStore
	gate chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	<-s.gate
	return s.MemoryStore.Get(ctx, key)
}

func TestInitializeBlocksUseDuringRehydration(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seed := New(Config{Store: store})
	require.True(t, seed.Initialize(ctx))
	require.True(t, seed.CreateFile(ctx, "/tmp/saved.txt", []byte("old")))
	require.True(t, seed.Save(ctx))
	seed.Shutdown(ctx)

	gated := &gatedStore{MemoryStore: store, gate: make(chan struct{})}
	fs := New(Config{Store: gated})
	defer fs.Shutdown(ctx)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		assert.True(t, fs.Initialize(ctx))
	}()

	// A caller arriving while the load is still in flight must wait for it
	// rather than mutate the interim skeleton and have the write dropped.
	created := make(chan struct{})
	go func() {
		defer close(created)
		assert.True(t, fs.CreateFile(ctx, "/tmp/early.txt", []byte("new")))
	}()

	time.Sleep(20 * time.Millisecond)
	close(gated.gate)
	<-initDone
	<-created

	assert.Equal(t, "old", string(fs.ReadFile(ctx, "/tmp/saved.txt")))
	assert.Equal(t, "new", string(fs.ReadFile(ctx, "/tmp/early.txt")))
}

func TestPersistenceDisabled(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	fs := New(Config{Store: store})
	fs.SetPersistence(false)
	require.True(t, fs.Initialize(ctx))
	defer fs.Shutdown(ctx)

	require.True(t, fs.CreateFile(ctx, "/tmp/x", nil))
	fs.Shutdown(ctx)

	_, err := store.Get(ctx, DefaultStoreKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLoadReplacesTree(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seed := New(Config{Store: store})
	require.True(t, seed.Initialize(ctx))
	require.True(t, seed.CreateFile(ctx, "/tmp/saved.txt", []byte("old")))
	require.True(t, seed.Save(ctx))
	seed.Shutdown(ctx)

	// A second instance with auto-save off diverges, then rolls back.
	fs := New(Config{Store: store})
	fs.SetPersistence(false)
	require.True(t, fs.Initialize(ctx))
	defer fs.Shutdown(ctx)

	require.True(t, fs.CreateFile(ctx, "/tmp/unsaved.txt", nil))
	require.True(t, fs.Load(ctx))
	assert.True(t, fs.Exists(ctx, "/tmp/saved.txt"))
	assert.False(t, fs.Exists(ctx, "/tmp/unsaved.txt"))
}
