// Package uploads stores client-supplied files and computes their final
// on-disk paths.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrIO = errors.New("file storage error")

// DefaultCover is served for accounts registered without a profile
// picture.
const DefaultCover = "/uploads/profile-pic-dummy.png"

// WebPrefix is the URL prefix uploaded files are served back under.
const WebPrefix = "/uploads/"

// Store writes uploaded files into a single local directory. Uploads are
// small, so the synchronous rename is acceptable.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create upload directory: %v", ErrIO, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// ResolvePath appends the extension of originalName to tmpPath. The
// extension is whatever follows the last "." in the name; a name with no
// dot, or a trailing dot, gets no extension at all.
func ResolvePath(tmpPath, originalName string) string {
	idx := strings.LastIndex(originalName, ".")
	if idx < 0 || idx == len(originalName)-1 {
		return tmpPath
	}
	return tmpPath + "." + originalName[idx+1:]
}

// Save writes src to a fresh file in the store directory, then renames
// it into place so the final name carries the original extension. It
// returns the web path the client uses to fetch the file.
func (s *Store) Save(src io.Reader, originalName string) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create file: %v", ErrIO, err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: failed to write file: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: failed to write file: %v", ErrIO, err)
	}

	finalPath := ResolvePath(tmp.Name(), originalName)
	if err := Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return WebPrefix + filepath.Base(finalPath), nil
}

// Rename relocates a stored file. The move is atomic within a single
// filesystem; a missing source or unwritable destination surfaces as
// ErrIO.
func Rename(oldPath, newPath string) error {
	if oldPath == newPath {
		return nil
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("%w: failed to move upload: %v", ErrIO, err)
	}
	return nil
}
