package vfs

import (
	"time"
)

// NodeType represents the type of a filesystem node
type NodeType int

const (
	NodeTypeUnknown NodeType = iota
	NodeTypeFile
	NodeTypeDirectory
)

// String returns a string representation of the NodeType
func (nt NodeType) String() string {
	switch nt {
	case NodeTypeFile:
		return "file"
	case NodeTypeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Metadata holds the common attributes of a filesystem node. Path is the
// canonical absolute path and is kept in sync with the node's position in
// the tree.
type Metadata struct {
	Name       string   // segment name, no separators
	Path       string   // canonical absolute path
	Type       NodeType // file or directory
	CreatedAt  int64    // unix seconds
	ModifiedAt int64    // unix seconds
	AccessedAt int64    // unix seconds
	Mode       uint32   // permission bits, stored for downstream checks
	Owner      string
	Group      string
}

func newMetadata(name string, nt NodeType, mode uint32) *Metadata {
	now := time.Now().Unix()
	return &Metadata{
		Name:       name,
		Type:       nt,
		CreatedAt:  now,
		ModifiedAt: now,
		AccessedAt: now,
		Mode:       mode,
		Owner:      "user",
		Group:      "user",
	}
}

// Created returns the creation time as a time.Time
func (m *Metadata) Created() time.Time { return time.Unix(m.CreatedAt, 0) }

// Modified returns the modification time as a time.Time
func (m *Metadata) Modified() time.Time { return time.Unix(m.ModifiedAt, 0) }

// Accessed returns the access time as a time.Time
func (m *Metadata) Accessed() time.Time { return time.Unix(m.AccessedAt, 0) }

// SetModified updates the modification time to the current time
func (m *Metadata) SetModified() { m.ModifiedAt = time.Now().Unix() }

// SetAccessed updates the access time to the current time
func (m *Metadata) SetAccessed() { m.AccessedAt = time.Now().Unix() }

// Node is a filesystem entry: either a DirNode or a FileNode. A symbolic
// link is a FileNode variant carrying a target path instead of content.
// The variant set is closed; consumers dispatch with a type switch.
type Node interface {
	GetMetadata() *Metadata
	Name() string
	Path() string
	Parent() *DirNode
	IsDir() bool
	IsFile() bool
	IsSymlink() bool

	// Clone deep-copies the node (and, for directories, its whole
	// subtree). The clone is detached: its parent is nil until it is
	// inserted into a tree.
	Clone() Node

	setParent(p *DirNode)
}

// FileNode is a regular file or a symbolic link.
type FileNode struct {
	meta    *Metadata
	parent  *DirNode
	content []byte
	symlink bool
	target  string
}

// NewFileNode creates a detached regular file node.
func NewFileNode(name string, content []byte) *FileNode {
	return &FileNode{
		meta:    newMetadata(name, NodeTypeFile, 0644),
		content: append([]byte(nil), content...),
	}
}

// NewSymlinkNode creates a detached symbolic link node. The target is not
// validated: broken links are permitted.
func NewSymlinkNode(name, target string) *FileNode {
	return &FileNode{
		meta:    newMetadata(name, NodeTypeFile, 0777),
		symlink: true,
		target:  target,
	}
}

func (f *FileNode) GetMetadata() *Metadata { return f.meta }
func (f *FileNode) Name() string           { return f.meta.Name }
func (f *FileNode) Path() string           { return f.meta.Path }
func (f *FileNode) Parent() *DirNode       { return f.parent }
func (f *FileNode) IsDir() bool            { return false }
func (f *FileNode) IsFile() bool           { return true }
func (f *FileNode) IsSymlink() bool        { return f.symlink }

// SymlinkTarget returns the link target, empty for regular files.
func (f *FileNode) SymlinkTarget() string { return f.target }

// Content returns a copy of the file content. A symlink carries no content
// of its own.
func (f *FileNode) Content() []byte {
	return append([]byte(nil), f.content...)
}

// SetContent replaces the file content in place and updates ModifiedAt.
func (f *FileNode) SetContent(data []byte) {
	f.content = append([]byte(nil), data...)
	f.meta.SetModified()
}

// AppendContent appends data to the file content and updates ModifiedAt.
func (f *FileNode) AppendContent(data []byte) {
	f.content = append(f.content, data...)
	f.meta.SetModified()
}

// Size returns the content length in bytes.
func (f *FileNode) Size() int { return len(f.content) }

// Clone deep-copies the file node.
func (f *FileNode) Clone() Node {
	meta := *f.meta
	return &FileNode{
		meta:    &meta,
		content: append([]byte(nil), f.content...),
		symlink: f.symlink,
		target:  f.target,
	}
}

func (f *FileNode) setParent(p *DirNode) { f.parent = p }

// DirNode is a directory. It owns its children; children hold a non-owning
// back-reference for path reconstruction.
type DirNode struct {
	meta     *Metadata
	parent   *DirNode
	children map[string]Node
}

// NewDirNode creates a detached directory node.
func NewDirNode(name string) *DirNode {
	return &DirNode{
		meta:     newMetadata(name, NodeTypeDirectory, 0755),
		children: make(map[string]Node),
	}
}

// NewRootDir creates the tree root. The root has path / and no parent.
func NewRootDir() *DirNode {
	root := NewDirNode("")
	root.meta.Path = "/"
	root.meta.Mode = 0755
	return root
}

func (d *DirNode) GetMetadata() *Metadata { return d.meta }
func (d *DirNode) Name() string           { return d.meta.Name }
func (d *DirNode) Path() string           { return d.meta.Path }
func (d *DirNode) Parent() *DirNode       { return d.parent }
func (d *DirNode) IsDir() bool            { return true }
func (d *DirNode) IsFile() bool           { return false }
func (d *DirNode) IsSymlink() bool        { return false }

// ChildCount returns the number of direct children.
func (d *DirNode) ChildCount() int { return len(d.children) }

// Clone deep-copies the directory and its whole subtree.
func (d *DirNode) Clone() Node {
	meta := *d.meta
	clone := &DirNode{
		meta:     &meta,
		children: make(map[string]Node, len(d.children)),
	}
	for name, child := range d.children {
		cc := child.Clone()
		cc.setParent(clone)
		clone.children[name] = cc
	}
	return clone
}

func (d *DirNode) setParent(p *DirNode) { d.parent = p }
