package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is the access level a mount grants on its share.
type Permission string

const (
	PermReadWrite Permission = "rw"
	PermReadOnly  Permission = "ro"
)

// MountPoint overlays an external share onto a directory of the tree.
type MountPoint struct {
	Source      string
	VirtualPath string
	FSType      string
	Options     string

	busy bool
}

// ReadOnly reports whether the mount options force read-only access.
func (m *MountPoint) ReadOnly() bool {
	for _, opt := range strings.Split(m.Options, ",") {
		if strings.TrimSpace(opt) == string(PermReadOnly) {
			return true
		}
	}
	return false
}

// EffectivePermission combines the share's base permission with the mount
// options. A mount can only narrow access, never broaden it: a read-only
// share stays read-only regardless of options.
func (m *MountPoint) EffectivePermission(base Permission) Permission {
	if base == PermReadOnly || m.ReadOnly() {
		return PermReadOnly
	}
	return base
}

// MountManager tracks the active mount points. Like the path cache it is
// guarded by the owning filesystem's mutex rather than a lock of its own.
type MountManager struct {
	mounts map[string]*MountPoint
}

// NewMountManager creates an empty mount table.
func NewMountManager() *MountManager {
	return &MountManager{mounts: make(map[string]*MountPoint)}
}

// Mount registers a mount point. The caller is responsible for the virtual
// path directory existing. Registering a duplicate virtual path fails.
func (mm *MountManager) Mount(source, virtualPath, fsType, options string) bool {
	if virtualPath == "" || source == "" {
		return false
	}
	if _, exists := mm.mounts[virtualPath]; exists {
		return false
	}
	mm.mounts[virtualPath] = &MountPoint{
		Source:      source,
		VirtualPath: virtualPath,
		FSType:      fsType,
		Options:     options,
	}
	return true
}

// Unmount removes a mount point. A busy mount refuses to unmount unless
// force is set.
func (mm *MountManager) Unmount(virtualPath string, force bool) bool {
	mp, ok := mm.mounts[virtualPath]
	if !ok {
		return false
	}
	if mp.busy && !force {
		return false
	}
	delete(mm.mounts, virtualPath)
	return true
}

// Get returns the mount at a virtual path, or nil.
func (mm *MountManager) Get(virtualPath string) *MountPoint {
	return mm.mounts[virtualPath]
}

// SetBusy marks a mount as having open references and reports whether the
// mount exists.
func (mm *MountManager) SetBusy(virtualPath string, busy bool) bool {
	mp, ok := mm.mounts[virtualPath]
	if !ok {
		return false
	}
	mp.busy = busy
	return true
}

// Count returns the number of active mounts.
func (mm *MountManager) Count() int { return len(mm.mounts) }

// MountInfo renders the active mounts in /proc/mounts format, one line per
// mount: source virtualPath fsType options. Lines are ordered by virtual
// path.
func (mm *MountManager) MountInfo() string {
	paths := make([]string, 0, len(mm.mounts))
	for path := range mm.mounts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		mp := mm.mounts[path]
		opts := mp.Options
		if opts == "" {
			opts = "defaults"
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n", mp.Source, mp.VirtualPath, mp.FSType, opts)
	}
	return sb.String()
}
