// Package api defines the request and response models of the herodesk
// HTTP interface.
package api

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse reports a boolean operation outcome
type SuccessResponse struct {
	Success bool `json:"success"`
}

// EntryInfo describes one filesystem node to API consumers
type EntryInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Type          string `json:"type"`
	Size          int    `json:"size"`
	CreatedAt     int64  `json:"createdAt"`
	ModifiedAt    int64  `json:"modifiedAt"`
	AccessedAt    int64  `json:"accessedAt"`
	Mode          uint32 `json:"mode"`
	Owner         string `json:"owner,omitempty"`
	Group         string `json:"group,omitempty"`
	IsSymlink     bool   `json:"isSymbolicLink,omitempty"`
	SymlinkTarget string `json:"symbolicLinkTarget,omitempty"`
}

// MkdirRequest creates a directory (with intermediate segments)
type MkdirRequest struct {
	Path string `json:"path"`
}

// WriteFileRequest writes or appends file content
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Append  bool   `json:"append,omitempty"`
}

// ReadFileResponse carries file content
type ReadFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListResponse carries a directory listing
type ListResponse struct {
	Path    string      `json:"path"`
	Entries []EntryInfo `json:"entries"`
}

// ExistsResponse reports path existence
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// TransferRequest names a source and destination for move/copy
type TransferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// SymlinkRequest creates a symbolic link
type SymlinkRequest struct {
	LinkPath   string `json:"linkPath"`
	TargetPath string `json:"targetPath"`
}

// ChdirRequest changes the session working directory
type ChdirRequest struct {
	Path string `json:"path"`
}

// CwdResponse reports the session working directory
type CwdResponse struct {
	Path string `json:"path"`
}

// MountRequest registers a mount point
type MountRequest struct {
	Source  string `json:"source"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Options string `json:"options,omitempty"`
}

// UnmountRequest removes a mount point
type UnmountRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force,omitempty"`
}

// MountInfoResponse carries the /proc/mounts style report
type MountInfoResponse struct {
	Mounts string `json:"mounts"`
}

// PreviewResponse carries rendered markdown for the file manager preview
type PreviewResponse struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

// StateKeysResponse lists state store keys
type StateKeysResponse struct {
	Keys []string `json:"keys"`
}

// StateValueResponse carries one state store value
type StateValueResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}
