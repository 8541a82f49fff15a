package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChild(t *testing.T) {
	root := NewRootDir()

	t.Run("Insert", func(t *testing.T) {
		dir := NewDirNode("etc")
		require.True(t, root.AddChild(dir))
		assert.Equal(t, "/etc", dir.Path())
		assert.Same(t, root, dir.Parent())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		assert.False(t, root.AddChild(NewDirNode("etc")))
		assert.False(t, root.AddChild(NewFileNode("etc", nil)))
		assert.Equal(t, 1, root.ChildCount())
	})

	t.Run("InvalidName", func(t *testing.T) {
		assert.False(t, root.AddChild(NewFileNode("", nil)))
		assert.False(t, root.AddChild(NewFileNode("a/b", nil)))
	})

	t.Run("SubtreeRebase", func(t *testing.T) {
		home := NewDirNode("home")
		alice := NewDirNode("alice")
		notes := NewFileNode("notes.txt", []byte("hi"))
		require.True(t, alice.AddChild(notes))
		require.True(t, home.AddChild(alice))
		require.True(t, root.AddChild(home))

		assert.Equal(t, "/home/alice", alice.Path())
		assert.Equal(t, "/home/alice/notes.txt", notes.Path())
	})
}

func TestRemoveChild(t *testing.T) {
	root := NewRootDir()
	file := NewFileNode("readme", nil)
	require.True(t, root.AddChild(file))

	assert.True(t, root.RemoveChild("readme"))
	assert.Nil(t, file.Parent())
	assert.Nil(t, root.GetChild("readme"))
	assert.False(t, root.RemoveChild("readme"))
}

func TestListChildren(t *testing.T) {
	root := NewRootDir()
	require.True(t, root.AddChild(NewFileNode("zeta", nil)))
	require.True(t, root.AddChild(NewFileNode("alpha", nil)))
	require.True(t, root.AddChild(NewFileNode(".hidden", nil)))

	visible := root.ListChildren(false)
	require.Len(t, visible, 2)
	assert.Equal(t, "alpha", visible[0].Name())
	assert.Equal(t, "zeta", visible[1].Name())

	all := root.ListChildren(true)
	require.Len(t, all, 3)
	assert.Equal(t, ".hidden", all[0].Name())
}

func TestResolve(t *testing.T) {
	root := NewRootDir()
	_, _, err := makeDirAll(root, "/home/alice")
	require.NoError(t, err)
	alice, err := resolve(root, "/home/alice")
	require.NoError(t, err)
	require.True(t, alice.(*DirNode).AddChild(NewFileNode("notes.txt", nil)))

	t.Run("Root", func(t *testing.T) {
		n, err := resolve(root, "/")
		require.NoError(t, err)
		assert.Same(t, Node(root), n)
	})

	t.Run("Deep", func(t *testing.T) {
		n, err := resolve(root, "/home/alice/notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "/home/alice/notes.txt", n.Path())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := resolve(root, "/home/bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ThroughFile", func(t *testing.T) {
		_, err := resolve(root, "/home/alice/notes.txt/deeper")
		assert.ErrorIs(t, err, ErrNotDirectory)
	})
}

func TestMakeDirAll(t *testing.T) {
	root := NewRootDir()

	dir, created, err := makeDirAll(root, "/var/log/app")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "/var/log/app", dir.Path())

	// Idempotent second call.
	again, created, err := makeDirAll(root, "/var/log/app")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, dir, again)

	// A file blocking a segment fails the whole call.
	require.True(t, dir.AddChild(NewFileNode("current", nil)))
	_, _, err = makeDirAll(root, "/var/log/app/current/x")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestBuildSkeleton(t *testing.T) {
	root := NewRootDir()
	require.NoError(t, buildSkeleton(root))

	for _, path := range standardSkeleton {
		n, err := resolve(root, path)
		require.NoError(t, err, path)
		assert.True(t, n.IsDir(), path)
	}

	// Re-running must not error or duplicate.
	count := root.ChildCount()
	require.NoError(t, buildSkeleton(root))
	assert.Equal(t, count, root.ChildCount())
}

func TestWalkTree(t *testing.T) {
	root := NewRootDir()
	_, _, err := makeDirAll(root, "/a/b")
	require.NoError(t, err)
	b, err := resolve(root, "/a/b")
	require.NoError(t, err)
	require.True(t, b.(*DirNode).AddChild(NewFileNode("f", nil)))

	var paths []string
	walkTree(root, func(n Node) { paths = append(paths, n.Path()) })
	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/b/f"}, paths)
}

func TestClone(t *testing.T) {
	root := NewRootDir()
	_, _, err := makeDirAll(root, "/data")
	require.NoError(t, err)
	data, err := resolve(root, "/data")
	require.NoError(t, err)
	dir := data.(*DirNode)
	require.True(t, dir.AddChild(NewFileNode("orig.txt", []byte("one"))))

	clone := dir.Clone().(*DirNode)
	assert.Nil(t, clone.Parent())

	// Mutating the clone leaves the original untouched.
	cloneFile := clone.GetChild("orig.txt").(*FileNode)
	cloneFile.SetContent([]byte("two"))
	origFile := dir.GetChild("orig.txt").(*FileNode)
	assert.Equal(t, "one", string(origFile.Content()))
	assert.Equal(t, "two", string(cloneFile.Content()))
}
