package host

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// FileURI returns a file:// URI for a local path.
func FileURI(p string) *url.URL {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: path.Clean(p)}
}

// FileURIs converts local paths to file URIs, skipping empty ones.
func FileURIs(paths ...string) []*url.URL {
	var uris []*url.URL
	for _, p := range paths {
		if p != "" {
			uris = append(uris, FileURI(p))
		}
	}
	return uris
}

// JoinPath returns base with elem appended to its path.
func JoinPath(base *url.URL, elem ...string) *url.URL {
	return base.JoinPath(elem...)
}

// LocalPath returns the filesystem path of a file URI.
func LocalPath(u *url.URL) (string, error) {
	if u == nil {
		return "", fmt.Errorf("nil uri")
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file uri: %s", u.Redacted())
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file uri not supported: %s", u.Redacted())
	}
	if u.Path == "" || !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("file uri has no absolute path: %s", u.Redacted())
	}
	return filepath.FromSlash(path.Clean(u.Path)), nil
}

// IsWithin reports whether target names root itself or a path below it.
// Both must be file URIs.
func IsWithin(root, target *url.URL) bool {
	rootPath, err := LocalPath(root)
	if err != nil {
		return false
	}
	targetPath, err := LocalPath(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootPath, targetPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// WithinAny reports whether target lies inside any of roots.
func WithinAny(roots []*url.URL, target *url.URL) bool {
	for _, root := range roots {
		if IsWithin(root, target) {
			return true
		}
	}
	return false
}
