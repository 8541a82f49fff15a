package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// standardSkeleton is the directory layout created on initialization,
// mirroring a stock Unix install.
var standardSkeleton = []string{
	"/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/media", "/mnt",
	"/opt", "/proc", "/root", "/run", "/sbin", "/srv", "/sys", "/tmp",
	"/usr", "/usr/bin", "/usr/lib", "/usr/local", "/usr/sbin",
	"/var", "/var/log", "/var/tmp",
}

// AddChild inserts a node into the directory. It fails without mutating
// anything if a child with that name already exists. On success the child's
// parent pointer and full path (recursively for directory subtrees) are
// updated.
func (d *DirNode) AddChild(n Node) bool {
	name := n.Name()
	if name == "" || strings.ContainsRune(name, '/') {
		return false
	}
	if _, exists := d.children[name]; exists {
		return false
	}
	d.children[name] = n
	n.setParent(d)
	rebasePaths(n, d.Path())
	d.meta.SetModified()
	return true
}

// GetChild looks up a direct child by name.
func (d *DirNode) GetChild(name string) Node {
	return d.children[name]
}

// RemoveChild detaches a direct child and reports whether it existed.
func (d *DirNode) RemoveChild(name string) bool {
	child, ok := d.children[name]
	if !ok {
		return false
	}
	child.setParent(nil)
	delete(d.children, name)
	d.meta.SetModified()
	return true
}

// ListChildren returns the direct children sorted by name. Names starting
// with a dot are excluded unless includeHidden is set.
func (d *DirNode) ListChildren(includeHidden bool) []Node {
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Node, 0, len(names))
	for _, name := range names {
		out = append(out, d.children[name])
	}
	return out
}

// rebasePaths recomputes the full path of a node (and its subtree) after it
// was attached under parentPath.
func rebasePaths(n Node, parentPath string) {
	n.GetMetadata().Path = JoinPath(parentPath, n.Name())
	if dir, ok := n.(*DirNode); ok {
		for _, child := range dir.children {
			rebasePaths(child, dir.Path())
		}
	}
}

// resolve walks a canonical absolute path from root, segment by segment.
// Descending through a file fails with ErrNotDirectory; a missing segment
// fails with ErrNotFound.
func resolve(root *DirNode, path string) (Node, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return root, nil
	}

	current := root
	for i, seg := range segments {
		child := current.GetChild(seg)
		if child == nil {
			return nil, ErrNotFound
		}
		if i == len(segments)-1 {
			return child, nil
		}
		dir, ok := child.(*DirNode)
		if !ok {
			return nil, fmt.Errorf("%s: %w", child.Path(), ErrNotDirectory)
		}
		current = dir
	}
	return nil, ErrNotFound
}

// makeDirAll creates every missing directory along a canonical path,
// mkdir -p style, and returns the final directory. It fails only when an
// existing file occupies one of the segments. The created flag reports
// whether anything new was inserted.
func makeDirAll(root *DirNode, path string) (dir *DirNode, created bool, err error) {
	current := root
	for _, seg := range SplitPath(path) {
		child := current.GetChild(seg)
		if child == nil {
			next := NewDirNode(seg)
			if !current.AddChild(next) {
				return nil, created, ErrAlreadyExists
			}
			current = next
			created = true
			continue
		}
		dir, ok := child.(*DirNode)
		if !ok {
			return nil, created, fmt.Errorf("%s: %w", child.Path(), ErrNotDirectory)
		}
		current = dir
	}
	return current, created, nil
}

// buildSkeleton creates the standard directory layout under root. It is
// idempotent: directories that already exist are left untouched.
func buildSkeleton(root *DirNode) error {
	for _, path := range standardSkeleton {
		if _, _, err := makeDirAll(root, path); err != nil {
			return fmt.Errorf("skeleton %s: %w", path, err)
		}
	}
	return nil
}

// walkTree visits every node reachable from root, root first then
// depth-first over children. The visit order within one directory is
// name-sorted.
func walkTree(root *DirNode, visit func(Node)) {
	visit(root)
	for _, child := range root.ListChildren(true) {
		if dir, ok := child.(*DirNode); ok {
			walkTree(dir, visit)
		} else {
			visit(child)
		}
	}
}
