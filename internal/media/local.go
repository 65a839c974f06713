package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps images on the local filesystem under basePath.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid faces dir %q: %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create faces dir %q: %w", absBasePath, err)
	}

	return &LocalStore{basePath: absBasePath}, nil
}

// resolve maps a slash-separated reference to an absolute path, refusing
// anything that escapes the base directory.
func (s *LocalStore) resolve(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty image reference")
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(ref))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("image reference %q resolves outside faces dir", ref)
	}
	return full, nil
}

func (s *LocalStore) Write(ctx context.Context, key string, img image.Image) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(full)
	tmp, err := createInOwnerDir(dir)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("move image into place: %w", err)
	}

	return filepath.ToSlash(key), nil
}

// createTemp is replaced in tests.
var createTemp = os.CreateTemp

// createInOwnerDir opens a temp file in dir, creating dir first. PruneOwner
// may remove the empty directory between the two steps, so a missing
// directory is recreated once.
func createInOwnerDir(dir string) (*os.File, error) {
	var tmp *os.File
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create owner dir: %w", err)
		}
		tmp, err = createTemp(dir, ".tmp-*.jpg")
		if !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	return tmp, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("open image: %w", err)
	}
	return f, nil
}

// PruneOwner removes the owner's directory when nothing is left in it.
func (s *LocalStore) PruneOwner(ctx context.Context, ownerID string) error {
	dir, err := s.resolve(ownerID)
	if err != nil {
		return err
	}
	if dir == s.basePath {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read owner dir: %w", err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove owner dir: %w", err)
	}
	return nil
}

var (
	_ Store  = (*LocalStore)(nil)
	_ Pruner = (*LocalStore)(nil)
)
