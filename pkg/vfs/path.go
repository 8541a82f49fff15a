package vfs

import (
	"strings"
)

// HomeDir returns the home directory for a user. The root user lives in
// /root, everyone else under /home.
func HomeDir(user string) string {
	if user == "" || user == "root" {
		return "/root"
	}
	return "/home/" + user
}

// NormalizePath resolves an arbitrary path string into a canonical absolute
// path. Relative paths are joined onto cwd, a leading ~ or ~user expands to
// the matching home directory, and . / .. segments are resolved. Popping ..
// at the root is a no-op. The result always starts with / and contains no
// dot segments or repeated separators.
func NormalizePath(path, cwd, user string) string {
	if path == "" {
		return "/"
	}

	// Tilde expansion: ~, ~/rest, ~alice, ~alice/rest
	if path[0] == '~' {
		rest := path[1:]
		name := user
		if rest != "" && rest[0] != '/' {
			idx := strings.IndexByte(rest, '/')
			if idx < 0 {
				name = rest
				rest = ""
			} else {
				name = rest[:idx]
				rest = rest[idx:]
			}
		}
		path = HomeDir(name) + rest
	}

	if !strings.HasPrefix(path, "/") {
		if cwd == "" {
			cwd = "/"
		}
		path = cwd + "/" + path
	}

	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			// skip
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}

	return "/" + strings.Join(segments, "/")
}

// JoinPath joins path elements into a single absolute path.
func JoinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// SplitPath splits a canonical path into its segments. The root path yields
// an empty slice.
func SplitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// PathDir returns the parent directory of a canonical path.
func PathDir(path string) string {
	if path == "/" || path == "" {
		return "/"
	}
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// PathBase returns the last segment of a canonical path. The root path
// yields an empty string.
func PathBase(path string) string {
	if path == "/" || path == "" {
		return ""
	}
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(path, '/')
	return path[idx+1:]
}
