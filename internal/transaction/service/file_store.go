package service

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// FileStore keeps uploaded documents under a single directory. Every path it
// accepts or returns is relative to that directory; os.Root refuses anything
// that escapes it, symlinks included.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save copies at most limit bytes from r into a new file under sub and returns
// its relative path. The stored name is random; only the extension of fileName
// is kept.
func (s *FileStore) Save(sub, fileName string, r io.Reader, limit int64) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", err
	}
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = root.Close()
	}()

	if err := root.MkdirAll(sub, 0o750); err != nil {
		return "", err
	}
	rel := path.Join(filepath.ToSlash(sub), uuid.NewString()+strings.ToLower(filepath.Ext(filepath.Base(fileName))))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", transactionDomain.ErrAttachmentOutsideStore, rel)
	}

	f, err := root.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("%w: file exceeds %d bytes", transactionDomain.ErrUploadRejected, limit)
	}
	if err != nil {
		_ = root.Remove(rel)
		return "", err
	}
	return rel, nil
}

// Open opens a stored file for reading.
func (s *FileStore) Open(rel string) (io.ReadCloser, error) {
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("%w: %s", transactionDomain.ErrAttachmentOutsideStore, rel)
	}
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = root.Close()
	}()

	return root.Open(rel)
}

// Remove deletes stored files. Missing files and paths outside the store are ignored.
func (s *FileStore) Remove(rels ...string) {
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return
	}
	defer func() {
		_ = root.Close()
	}()
	for _, rel := range rels {
		if filepath.IsLocal(rel) {
			_ = root.Remove(rel)
		}
	}
}
