package vfs

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// maxLinkDepth bounds symlink chains so a link cycle cannot hang a read.
const maxLinkDepth = 40

// Config holds the construction parameters for a VirtualFS.
type Config struct {
	// User owns the session; ~ expands to this user's home directory.
	User string

	// Store is the persistence backend. Nil disables persistence.
	Store Store

	// StoreKey is the backend key the tree document is saved under.
	// Empty selects DefaultStoreKey.
	StoreKey string

	// SaveTimeout bounds every backend call. Zero selects the default.
	SaveTimeout time.Duration
}

// VirtualFS is the simulated filesystem of one desktop session: an
// in-memory Unix-style tree with a path cache, mount table, event stream
// and an asynchronous persistence bridge. Expected failures (missing
// parents, name collisions, deleting root) are reported as false/nil
// returns, never as errors; backend faults surface as Error events.
//
// One mutex guards tree, cache and mount table together: they are updated
// atomically with respect to each other. Suspension happens only at the
// persistence boundary.
type VirtualFS struct {
	mu     sync.Mutex
	root   *DirNode
	cache  *PathCache
	mounts *MountManager
	cwd    string
	user   string

	// initMu serializes Initialize itself, including the backend load, so
	// a caller racing through ensureInit blocks until rehydration is done
	// instead of mutating a skeleton the loaded tree then replaces.
	initMu      sync.Mutex
	initialized bool

	bus     *EventBus
	bridge  *Bridge
	persist atomic.Bool

	saveCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a filesystem instance. The tree is built on Initialize (or
// lazily on first use).
func New(cfg Config) *VirtualFS {
	if cfg.User == "" {
		cfg.User = "user"
	}
	fs := &VirtualFS{
		cache:  NewPathCache(),
		mounts: NewMountManager(),
		cwd:    "/",
		user:   cfg.User,
		bus:    NewEventBus(),
		saveCh: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if cfg.Store != nil {
		fs.bridge = NewBridge(cfg.Store, cfg.StoreKey, cfg.SaveTimeout)
		fs.persist.Store(true)
	}
	fs.wg.Add(1)
	go fs.saver()
	return fs
}

// Initialize builds the root tree with the standard Unix skeleton and, when
// persistence is enabled, rehydrates a previously saved tree from the
// backend. It is one-way and idempotent. The instance reports initialized
// only once rehydration has finished; concurrent callers block until then,
// so no mutation can land on a skeleton that a loaded tree replaces.
func (fs *VirtualFS) Initialize(ctx context.Context) bool {
	fs.initMu.Lock()
	defer fs.initMu.Unlock()

	fs.mu.Lock()
	done := fs.initialized
	fs.mu.Unlock()
	if done {
		return true
	}

	root := NewRootDir()
	if err := buildSkeleton(root); err != nil {
		fs.bus.Publish(Event{Type: EventError, Path: "/", Message: err.Error()})
		return false
	}

	if fs.bridge != nil && fs.persist.Load() {
		if !fs.bridge.Initialize(ctx) {
			fs.bus.Publish(Event{Type: EventError, Path: "/", Message: "state backend unreachable"})
		} else if loaded, err := fs.bridge.Load(ctx); err != nil {
			fs.bus.Publish(Event{Type: EventError, Path: "/", Message: err.Error()})
		} else if loaded != nil {
			root = loaded
		}
	}

	fs.mu.Lock()
	fs.root = root
	fs.cache.Rebuild(root)
	fs.initialized = true
	fs.mu.Unlock()

	fs.bus.Publish(Event{Type: EventSystemInitialized, Path: "/"})
	return true
}

// ensureInit auto-initializes on first use, keeping the contract forgiving
// for callers that skip the explicit Initialize.
func (fs *VirtualFS) ensureInit(ctx context.Context) {
	fs.mu.Lock()
	ok := fs.initialized
	fs.mu.Unlock()
	if !ok {
		fs.Initialize(ctx)
	}
}

// normalize resolves a raw path against the session's cwd and user.
func (fs *VirtualFS) normalize(path string) string {
	fs.mu.Lock()
	cwd, user := fs.cwd, fs.user
	fs.mu.Unlock()
	return NormalizePath(path, cwd, user)
}

// lookupLocked resolves a canonical path to a node, consulting the cache
// first and falling back to a tree walk. Successful lookups are cached and
// refresh AccessedAt. Callers hold fs.mu.
func (fs *VirtualFS) lookupLocked(p string) Node {
	if p == "/" {
		fs.root.GetMetadata().SetAccessed()
		return fs.root
	}
	if n := fs.cache.Get(p); n != nil {
		n.GetMetadata().SetAccessed()
		return n
	}
	n, err := resolve(fs.root, p)
	if err != nil {
		return nil
	}
	fs.cache.Put(p, n)
	n.GetMetadata().SetAccessed()
	return n
}

// CreateFile creates a file at path. It fails if the parent directory does
// not exist or a child with that name already exists.
func (fs *VirtualFS) CreateFile(ctx context.Context, path string, content []byte) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)
	if p == "/" {
		return false
	}

	fs.mu.Lock()
	parent, ok := fs.lookupLocked(PathDir(p)).(*DirNode)
	if !ok {
		fs.mu.Unlock()
		return false
	}
	node := NewFileNode(PathBase(p), content)
	if !parent.AddChild(node) {
		fs.mu.Unlock()
		return false
	}
	fs.cache.Put(p, node)
	fs.mu.Unlock()

	fs.bus.Publish(Event{Type: EventFileCreated, Path: p})
	fs.scheduleSave()
	return true
}

// CreateDirectory creates a directory at path together with every missing
// intermediate segment (mkdir -p). It fails only when an existing file
// occupies one of the segments, and fires a single DirectoryCreated event
// for the whole operation.
func (fs *VirtualFS) CreateDirectory(ctx context.Context, path string) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	fs.mu.Lock()
	dir, created, err := makeDirAll(fs.root, p)
	if err != nil {
		fs.mu.Unlock()
		return false
	}
	fs.cache.Put(p, dir)
	fs.mu.Unlock()

	if created {
		fs.bus.Publish(Event{Type: EventDirectoryCreated, Path: p})
		fs.scheduleSave()
	}
	return true
}

// Delete removes the node at path. The root cannot be deleted; a non-empty
// directory needs recursive. Cache entries for the deleted subtree are
// evicted.
func (fs *VirtualFS) Delete(ctx context.Context, path string, recursive bool) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)
	if p == "/" {
		return false
	}

	fs.mu.Lock()
	node := fs.lookupLocked(p)
	if node == nil {
		fs.mu.Unlock()
		return false
	}
	if dir, ok := node.(*DirNode); ok && dir.ChildCount() > 0 && !recursive {
		fs.mu.Unlock()
		return false
	}
	parent := node.Parent()
	if parent == nil || !parent.RemoveChild(node.Name()) {
		fs.mu.Unlock()
		return false
	}
	isDir := node.IsDir()
	fs.cache.Invalidate(p, isDir)
	fs.mu.Unlock()

	et := EventFileDeleted
	if isDir {
		et = EventDirectoryDeleted
	}
	fs.bus.Publish(Event{Type: et, Path: p})
	fs.scheduleSave()
	return true
}

// Exists reports whether a node resolves at path.
func (fs *VirtualFS) Exists(ctx context.Context, path string) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lookupLocked(p) != nil
}

// ListDirectory returns the children of the directory at path, name-sorted.
// A path that is not a directory yields an empty slice, not an error.
func (fs *VirtualFS) ListDirectory(ctx context.Context, path string, includeHidden bool) []Node {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	dir, ok := fs.lookupLocked(p).(*DirNode)
	if !ok {
		return []Node{}
	}
	return dir.ListChildren(includeHidden)
}

// ReadFile returns the content of the file at path, transparently following
// symbolic links (the target resolves relative to the link's directory when
// not absolute). It returns nil when the path does not resolve to a file.
func (fs *VirtualFS) ReadFile(ctx context.Context, path string) []byte {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	data, ok := fs.readAt(p, 0)
	if !ok {
		return nil
	}
	fs.bus.Publish(Event{Type: EventFileRead, Path: p})
	return data
}

func (fs *VirtualFS) readAt(p string, depth int) ([]byte, bool) {
	if depth > maxLinkDepth {
		return nil, false
	}

	fs.mu.Lock()
	file, ok := fs.lookupLocked(p).(*FileNode)
	if !ok {
		fs.mu.Unlock()
		return nil, false
	}
	if file.IsSymlink() {
		target, user := file.SymlinkTarget(), fs.user
		fs.mu.Unlock()
		return fs.readAt(NormalizePath(target, PathDir(p), user), depth+1)
	}
	data := file.Content()
	fs.mu.Unlock()
	return data, true
}

// WriteFile overwrites the file at path in place, following symbolic links
// the same way ReadFile does. When nothing exists at path it falls back to
// CreateFile.
func (fs *VirtualFS) WriteFile(ctx context.Context, path string, data []byte) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	if !fs.writeAt(ctx, p, data, false, 0) {
		return false
	}
	fs.bus.Publish(Event{Type: EventFileWritten, Path: p})
	fs.scheduleSave()
	return true
}

// AppendFile appends data to the file at path, creating it when absent.
func (fs *VirtualFS) AppendFile(ctx context.Context, path string, data []byte) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	if !fs.writeAt(ctx, p, data, true, 0) {
		return false
	}
	fs.bus.Publish(Event{Type: EventFileWritten, Path: p})
	fs.scheduleSave()
	return true
}

func (fs *VirtualFS) writeAt(ctx context.Context, p string, data []byte, appendTo bool, depth int) bool {
	if depth > maxLinkDepth {
		return false
	}

	fs.mu.Lock()
	node := fs.lookupLocked(p)
	if node == nil {
		fs.mu.Unlock()
		return fs.CreateFile(ctx, p, data)
	}
	file, ok := node.(*FileNode)
	if !ok {
		fs.mu.Unlock()
		return false
	}
	if file.IsSymlink() {
		target, user := file.SymlinkTarget(), fs.user
		fs.mu.Unlock()
		return fs.writeAt(ctx, NormalizePath(target, PathDir(p), user), data, appendTo, depth+1)
	}
	if appendTo {
		file.AppendContent(data)
	} else {
		file.SetContent(data)
	}
	fs.mu.Unlock()
	return true
}

// Copy deep-clones the subtree at src and inserts the clone under dst's
// parent directory with dst's name. Every new path is cached. It fails when
// dst already exists or its parent directory is missing.
func (fs *VirtualFS) Copy(ctx context.Context, src, dst string) bool {
	fs.ensureInit(ctx)
	s := fs.normalize(src)
	d := fs.normalize(dst)
	if s == "/" || d == "/" || s == d {
		return false
	}

	fs.mu.Lock()
	srcNode := fs.lookupLocked(s)
	if srcNode == nil {
		fs.mu.Unlock()
		return false
	}
	if fs.lookupLocked(d) != nil {
		fs.mu.Unlock()
		return false
	}
	dstParent, ok := fs.lookupLocked(PathDir(d)).(*DirNode)
	if !ok {
		fs.mu.Unlock()
		return false
	}
	clone := srcNode.Clone()
	clone.GetMetadata().Name = PathBase(d)
	if !dstParent.AddChild(clone) {
		fs.mu.Unlock()
		return false
	}
	if dir, ok := clone.(*DirNode); ok {
		walkTree(dir, func(n Node) { fs.cache.Put(n.Path(), n) })
	} else {
		fs.cache.Put(d, clone)
	}
	isDir := clone.IsDir()
	fs.mu.Unlock()

	et := EventFileCopied
	if isDir {
		et = EventDirectoryCopied
	}
	fs.bus.Publish(Event{Type: et, Path: d, SourcePath: s, TargetPath: d})
	fs.scheduleSave()
	return true
}

// Move relocates src to dst as copy-then-delete: the copy must succeed
// before the original is removed, and dst must not already exist. A
// destination equal to the source or inside its subtree is rejected up
// front, since deleting the source would take the fresh copy with it. A
// crash between the two steps can leave both trees present; the in-memory
// tree is re-persisted on the next mutation either way.
func (fs *VirtualFS) Move(ctx context.Context, src, dst string) bool {
	fs.ensureInit(ctx)
	s := fs.normalize(src)
	d := fs.normalize(dst)
	if s == d || strings.HasPrefix(d, strings.TrimSuffix(s, "/")+"/") {
		return false
	}
	if !fs.Copy(ctx, s, d) {
		return false
	}
	return fs.Delete(ctx, s, true)
}

// Rename changes a node's name within its directory, expressed through the
// same copy-then-delete contract as Move.
func (fs *VirtualFS) Rename(ctx context.Context, path, newName string) bool {
	p := fs.normalize(path)
	if newName == "" || newName == "/" {
		return false
	}
	return fs.Move(ctx, p, JoinPath(PathDir(p), newName))
}

// CreateSymbolicLink creates a link at linkPath pointing at targetPath. The
// target is not validated; broken links are permitted.
func (fs *VirtualFS) CreateSymbolicLink(ctx context.Context, linkPath, targetPath string) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(linkPath)
	if p == "/" || targetPath == "" {
		return false
	}

	fs.mu.Lock()
	parent, ok := fs.lookupLocked(PathDir(p)).(*DirNode)
	if !ok {
		fs.mu.Unlock()
		return false
	}
	link := NewSymlinkNode(PathBase(p), targetPath)
	if !parent.AddChild(link) {
		fs.mu.Unlock()
		return false
	}
	fs.cache.Put(p, link)
	fs.mu.Unlock()

	fs.bus.Publish(Event{Type: EventSymbolicLinkCreated, Path: p, TargetPath: targetPath})
	fs.scheduleSave()
	return true
}

// Stat returns a copy of the metadata at path, or nil.
func (fs *VirtualFS) Stat(ctx context.Context, path string) *Metadata {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	node := fs.lookupLocked(p)
	if node == nil {
		return nil
	}
	meta := *node.GetMetadata()
	return &meta
}

// ChangeDirectory updates the session's working directory. It succeeds only
// when path resolves to a directory.
func (fs *VirtualFS) ChangeDirectory(ctx context.Context, path string) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.lookupLocked(p).(*DirNode); !ok {
		return false
	}
	fs.cwd = p
	return true
}

// CurrentDirectory returns the session's working directory.
func (fs *VirtualFS) CurrentDirectory() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.cwd
}

// CurrentUser returns the session's user.
func (fs *VirtualFS) CurrentUser() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.user
}

// Mount overlays an external share onto a directory, creating the directory
// first when missing. Duplicate mounts at the same virtual path fail.
func (fs *VirtualFS) Mount(ctx context.Context, source, virtualPath, fsType, options string) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(virtualPath)
	if !fs.CreateDirectory(ctx, p) {
		return false
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mounts.Mount(source, p, fsType, options)
}

// Unmount removes the mount at virtualPath. A busy mount needs force.
func (fs *VirtualFS) Unmount(ctx context.Context, virtualPath string, force bool) bool {
	fs.ensureInit(ctx)
	p := fs.normalize(virtualPath)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mounts.Unmount(p, force)
}

// SetMountBusy flags a mount as having open references.
func (fs *VirtualFS) SetMountBusy(virtualPath string, busy bool) bool {
	p := fs.normalize(virtualPath)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mounts.SetBusy(p, busy)
}

// MountInfo renders the active mounts in /proc/mounts format.
func (fs *VirtualFS) MountInfo() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mounts.MountInfo()
}

// Subscribe registers an event consumer.
func (fs *VirtualFS) Subscribe() (<-chan Event, func()) {
	return fs.bus.Subscribe()
}

// RecentEvents returns the retained event ring, oldest first.
func (fs *VirtualFS) RecentEvents() []Event {
	return fs.bus.Recent()
}

// SetPersistence toggles the auto-save policy. The flag is orthogonal to
// initialization and has no effect without a configured store.
func (fs *VirtualFS) SetPersistence(enabled bool) {
	fs.persist.Store(enabled && fs.bridge != nil)
}

// Save persists the current tree synchronously.
func (fs *VirtualFS) Save(ctx context.Context) bool {
	fs.ensureInit(ctx)
	return fs.saveNow(ctx)
}

// Load replaces the in-memory tree with the persisted one and rebuilds the
// path cache. It returns false when nothing was saved or the payload is
// malformed.
func (fs *VirtualFS) Load(ctx context.Context) bool {
	fs.ensureInit(ctx)
	if fs.bridge == nil {
		return false
	}
	loaded, err := fs.bridge.Load(ctx)
	if err != nil {
		fs.bus.Publish(Event{Type: EventError, Path: "/", Message: err.Error()})
		return false
	}
	if loaded == nil {
		return false
	}

	fs.mu.Lock()
	fs.root = loaded
	fs.cache.Rebuild(loaded)
	fs.mu.Unlock()
	return true
}

// Shutdown flushes a final save when persistence is enabled and stops the
// background saver.
func (fs *VirtualFS) Shutdown(ctx context.Context) {
	fs.closeOnce.Do(func() {
		if fs.bridge != nil && fs.persist.Load() {
			fs.saveNow(ctx)
		}
		close(fs.done)
	})
	fs.wg.Wait()
}

// scheduleSave queues an asynchronous save after a structural mutation.
// Rapid successive mutations coalesce into a single pending save: at most
// one save is in flight and at most one is queued behind it.
func (fs *VirtualFS) scheduleSave() {
	if fs.bridge == nil || !fs.persist.Load() {
		return
	}
	select {
	case fs.saveCh <- struct{}{}:
	default:
	}
}

func (fs *VirtualFS) saver() {
	defer fs.wg.Done()
	for {
		select {
		case <-fs.done:
			return
		case <-fs.saveCh:
			fs.saveNow(context.Background())
		}
	}
}

// saveNow encodes the tree under the lock and writes it to the backend
// outside of it. A failed save is reported as an Error event; the in-memory
// mutation that triggered it stands regardless.
func (fs *VirtualFS) saveNow(ctx context.Context) bool {
	if fs.bridge == nil {
		return false
	}
	fs.mu.Lock()
	if fs.root == nil {
		fs.mu.Unlock()
		return false
	}
	doc := encodeTree(fs.root)
	fs.mu.Unlock()

	if err := fs.bridge.SaveDoc(ctx, doc); err != nil {
		log.Printf("vfs: background save failed: %v", err)
		fs.bus.Publish(Event{Type: EventError, Path: "/", Message: err.Error()})
		return false
	}
	return true
}
