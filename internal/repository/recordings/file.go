package recordings

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/oshokin/safety-relay/internal/config"
)

// Object describes a stored file.
type Object struct {
	// Name is the file name inside the store directory.
	Name string
	// Digest is the hex BLAKE3 digest of the contents.
	Digest string
	// Size is the number of bytes written.
	Size int64
}

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("recording not found")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("recording too large")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("recording is empty")
	// ErrInvalidName is returned for names outside the store.
	ErrInvalidName = errors.New("invalid recording name")
)

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// FileStore writes recordings into a single directory.
type FileStore struct {
	// dir is the directory holding the files.
	dir string
	// maxBytes caps a single upload; zero means unlimited.
	maxBytes int64
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string, maxBytes int64) (*FileStore, error) {
	dir = filepath.Clean(dir)

	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}

	return &FileStore{
		dir:      dir,
		maxBytes: maxBytes,
	}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put copies r into the store under its content digest with the given extension.
func (s *FileStore) Put(ctx context.Context, r io.Reader, ext string) (*Object, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !extensionPattern.MatchString(ext) {
		return nil, fmt.Errorf("%w: extension %q", ErrInvalidName, ext)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	var (
		hasher = blake3.New()
		source = r
	)

	if s.maxBytes > 0 {
		source = io.LimitReader(r, s.maxBytes+1)
	}

	size, err := io.Copy(io.MultiWriter(tmp, hasher), &contextReader{ctx: ctx, r: source})

	closeErr := tmp.Close()

	switch {
	case err != nil:
		return nil, fmt.Errorf("write recording: %w", err)
	case closeErr != nil:
		return nil, fmt.Errorf("close recording: %w", closeErr)
	case size == 0:
		return nil, ErrEmpty
	case s.maxBytes > 0 && size > s.maxBytes:
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}

	if err = os.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("set recording permissions: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	name := digest + ext

	if err = os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("store recording: %w", err)
	}

	committed = true

	return &Object{
		Name:   name,
		Digest: digest,
		Size:   size,
	}, nil
}

// Open returns a reader for a stored file.
func (s *FileStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open recording: %w", err)
	}

	return file, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return filepath.Join(s.dir, name), nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single Put call.
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
