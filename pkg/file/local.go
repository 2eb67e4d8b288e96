package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage for the local filesystem.
// All operations are confined to baseDir to prevent path traversal.
type LocalStorage struct {
	baseDir string // absolute path, all files live under it
	baseURL string // URL prefix for serving files, e.g. "/files/"
}

// NewLocalStorage creates a local filesystem storage rooted at baseDir.
// The directory is created if it doesn't exist.
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}
	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &LocalStorage{baseDir: absBaseDir, baseURL: baseURL}, nil
}

// Save stores a file on disk under path. Partial files are removed on error.
func (s *LocalStorage) Save(ctx context.Context, fh *multipart.FileHeader, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fh == nil {
		return nil, ErrNilFileHeader
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(s.baseDir, absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	rel = filepath.ToSlash(rel)
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	written, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	mimeType, mimeErr := GetMIMEType(fh)
	if mimeErr != nil {
		mimeType = "application/octet-stream"
	}

	return &File{
		Filename:     SanitizeFilename(fh.Filename),
		Size:         written,
		MIMEType:     mimeType,
		RelativePath: rel,
		URL:          s.URL(rel),
	}, nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// Exists checks whether a file exists under the storage root.
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	absPath, err := s.resolvePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(absPath)
	return err == nil && !info.IsDir()
}

// URL returns the public URL for a stored file.
func (s *LocalStorage) URL(path string) string {
	return s.baseURL + strings.TrimPrefix(path, "/")
}

// resolvePath joins path with baseDir and rejects anything that escapes it.
func (s *LocalStorage) resolvePath(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	abs := filepath.Join(s.baseDir, cleaned)
	if !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) && abs != s.baseDir {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return abs, nil
}
