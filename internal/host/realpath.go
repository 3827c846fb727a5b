package host

import (
	"errors"
	"net/url"
	"path/filepath"

	"github.com/spf13/afero"
)

// RealPath resolves symbolic links in p when fsys can follow them. A
// filesystem without link support returns p unchanged.
func RealPath(fsys afero.Fs, p string) (string, error) {
	lr, ok := fsys.(afero.LinkReader)
	if !ok {
		return p, nil
	}
	if _, err := lr.ReadlinkIfPossible(p); errors.Is(err, afero.ErrNoReadlink) {
		return p, nil
	}
	return filepath.EvalSymlinks(p)
}

// WithinAnyReal is WithinAny on link-resolved paths, so a link inside a
// root cannot lead outside it. fsys must address absolute OS paths.
// Roots that cannot be resolved are skipped.
func WithinAnyReal(fsys afero.Fs, roots []*url.URL, target *url.URL) bool {
	p, err := LocalPath(target)
	if err != nil {
		return false
	}
	targetPath, err := RealPath(fsys, p)
	if err != nil {
		return false
	}

	resolved := make([]*url.URL, 0, len(roots))
	for _, root := range roots {
		rp, err := LocalPath(root)
		if err != nil {
			continue
		}
		if rr, err := RealPath(fsys, rp); err == nil {
			resolved = append(resolved, FileURI(rr))
		}
	}
	return WithinAny(resolved, FileURI(targetPath))
}
