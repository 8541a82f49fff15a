package vfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store is the narrow contract to the opaque key-value backend the
// filesystem persists into (a browser session store, an embedded state
// server, or an external redis). Get returns ErrKeyNotFound when the key
// does not exist.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// persistedNode is one node of the serialized tree document. Content is
// base64 on the wire (encoding/json's []byte representation), timestamps
// are epoch millis to match what the hosting page writes.
type persistedNode struct {
	Name          string           `json:"name"`
	Path          string           `json:"fullPath"`
	Type          string           `json:"type"`
	Content       []byte           `json:"content,omitempty"`
	Children      []*persistedNode `json:"children,omitempty"`
	CreatedAt     int64            `json:"createdAt"`
	ModifiedAt    int64            `json:"modifiedAt"`
	AccessedAt    int64            `json:"accessedAt"`
	Mode          uint32           `json:"mode"`
	Owner         string           `json:"owner,omitempty"`
	Group         string           `json:"group,omitempty"`
	IsSymlink     bool             `json:"isSymbolicLink,omitempty"`
	SymlinkTarget string           `json:"symbolicLinkTarget,omitempty"`
}

// encodeTree converts a tree into its document form. Children are emitted
// name-sorted so repeated saves of an unchanged tree produce identical
// payloads.
func encodeTree(n Node) *persistedNode {
	meta := n.GetMetadata()
	pn := &persistedNode{
		Name:       meta.Name,
		Path:       meta.Path,
		Type:       meta.Type.String(),
		CreatedAt:  meta.CreatedAt * 1000,
		ModifiedAt: meta.ModifiedAt * 1000,
		AccessedAt: meta.AccessedAt * 1000,
		Mode:       meta.Mode,
		Owner:      meta.Owner,
		Group:      meta.Group,
	}

	switch node := n.(type) {
	case *DirNode:
		for _, child := range node.ListChildren(true) {
			pn.Children = append(pn.Children, encodeTree(child))
		}
	case *FileNode:
		if node.IsSymlink() {
			pn.IsSymlink = true
			pn.SymlinkTarget = node.SymlinkTarget()
		} else {
			pn.Content = node.Content()
		}
	}
	return pn
}

// decodeTree rebuilds a tree from its document form. The returned root is
// detached from any filesystem instance.
func decodeTree(doc *persistedNode) (*DirNode, error) {
	if doc == nil || doc.Type != NodeTypeDirectory.String() {
		return nil, fmt.Errorf("persisted root: %w", ErrNotDirectory)
	}
	root := NewRootDir()
	applyPersistedMetadata(root.meta, doc)
	for _, child := range doc.Children {
		if err := attachPersisted(root, child); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func applyPersistedMetadata(meta *Metadata, pn *persistedNode) {
	meta.CreatedAt = pn.CreatedAt / 1000
	meta.ModifiedAt = pn.ModifiedAt / 1000
	meta.AccessedAt = pn.AccessedAt / 1000
	if pn.Mode != 0 {
		meta.Mode = pn.Mode
	}
	if pn.Owner != "" {
		meta.Owner = pn.Owner
	}
	if pn.Group != "" {
		meta.Group = pn.Group
	}
}

func attachPersisted(parent *DirNode, pn *persistedNode) error {
	if pn.Name == "" {
		return fmt.Errorf("nameless child under %s: %w", parent.Path(), ErrInvalidPath)
	}

	var node Node
	switch pn.Type {
	case NodeTypeDirectory.String():
		dir := NewDirNode(pn.Name)
		applyPersistedMetadata(dir.meta, pn)
		node = dir
	case NodeTypeFile.String():
		var file *FileNode
		if pn.IsSymlink {
			file = NewSymlinkNode(pn.Name, pn.SymlinkTarget)
		} else {
			file = NewFileNode(pn.Name, pn.Content)
		}
		applyPersistedMetadata(file.meta, pn)
		node = file
	default:
		return fmt.Errorf("unknown node type %q at %s", pn.Type, pn.Path)
	}

	if !parent.AddChild(node) {
		return fmt.Errorf("%s/%s: %w", parent.Path(), pn.Name, ErrAlreadyExists)
	}

	if dir, ok := node.(*DirNode); ok {
		for _, child := range pn.Children {
			if err := attachPersisted(dir, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefaultStoreKey is the key the tree document is persisted under when the
// configuration does not name one.
const DefaultStoreKey = "herodesk:fs"

// Bridge serializes the tree to and from a Store. Failures never escape as
// errors past this boundary: operations report false/nil and the caller
// turns that into an Error event.
type Bridge struct {
	store   Store
	key     string
	timeout time.Duration
}

// NewBridge creates a persistence bridge over a store. An empty key selects
// DefaultStoreKey; a zero timeout defaults to five seconds.
func NewBridge(store Store, key string, timeout time.Duration) *Bridge {
	if key == "" {
		key = DefaultStoreKey
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bridge{store: store, key: key, timeout: timeout}
}

// Initialize establishes the backend connection. Idempotent.
func (b *Bridge) Initialize(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.store.Ping(ctx) == nil
}

// SaveDoc writes an encoded tree document to the backend.
func (b *Bridge) SaveDoc(ctx context.Context, doc *persistedNode) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode filesystem document: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.store.Set(ctx, b.key, payload); err != nil {
		return fmt.Errorf("store filesystem document: %w", err)
	}
	return nil
}

// Load reads and decodes a previously saved tree. It returns nil (and no
// error) when nothing was saved yet; a malformed payload is an error.
func (b *Bridge) Load(ctx context.Context) (*DirNode, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := b.store.Get(ctx, b.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch filesystem document: %w", err)
	}

	var doc persistedNode
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode filesystem document: %w", err)
	}
	return decodeTree(&doc)
}
